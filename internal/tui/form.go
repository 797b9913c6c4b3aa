package tui

import (
	"strings"

	"github.com/brizzai/cogauth/internal/authview"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formInput struct {
	label string
	field authview.Field
	input textinput.Model
}

// formModel is a column of text inputs bound to credential fields
type formModel struct {
	title  string
	inputs []formInput
	focus  int
}

type inputDef struct {
	label  string
	field  authview.Field
	secret bool
}

func newForm(title string, defs ...inputDef) formModel {
	f := formModel{title: title}
	for _, def := range defs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 256
		ti.Width = 40
		if def.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.inputs = append(f.inputs, formInput{label: def.label, field: def.field, input: ti})
	}
	f.setFocus(0)
	return f
}

func fieldValue(creds authview.Credentials, field authview.Field) string {
	switch field {
	case authview.FieldEmail:
		return creds.Email
	case authview.FieldPassword:
		return creds.Password
	case authview.FieldConfirmPassword:
		return creds.ConfirmPassword
	case authview.FieldVerificationCode:
		return creds.VerificationCode
	}
	return ""
}

// load replaces the input values with creds
func (f *formModel) load(creds authview.Credentials) {
	for i := range f.inputs {
		f.inputs[i].input.SetValue(fieldValue(creds, f.inputs[i].field))
	}
}

func (f *formModel) setFocus(i int) tea.Cmd {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n

	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].input.Focus()
		} else {
			f.inputs[j].input.Blur()
		}
	}
	return cmd
}

func (f *formModel) next() tea.Cmd {
	return f.setFocus(f.focus + 1)
}

func (f *formModel) prev() tea.Cmd {
	return f.setFocus(f.focus - 1)
}

// update forwards msg to the focused input and reports the field it edited
func (f *formModel) update(msg tea.Msg) (authview.Field, string, tea.Cmd) {
	in := &f.inputs[f.focus]
	var cmd tea.Cmd
	in.input, cmd = in.input.Update(msg)
	return in.field, in.input.Value(), cmd
}

func (f formModel) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := labelStyle.Render(in.label)
		if i == f.focus {
			label = focusedLabelStyle.Render(in.label)
		}
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, label, in.input.View()))
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
