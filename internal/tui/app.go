package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/cogauth/internal/auth"
	"github.com/brizzai/cogauth/internal/authview"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// opDoneMsg is sent when a controller operation returns
type opDoneMsg struct {
	err error
}

type appKeyMap struct {
	submit  key.Binding
	toggle  key.Binding
	next    key.Binding
	prev    key.Binding
	signOut key.Binding
	quit    key.Binding
	forceQ  key.Binding
}

func newAppKeyMap() *appKeyMap {
	return &appKeyMap{
		submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		toggle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "switch form"),
		),
		next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		signOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "sign out"),
		),
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQ: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// AppModel renders the view the controller is in and feeds it user input
type AppModel struct {
	ctx       context.Context
	ctrl      *authview.Controller
	keys      *appKeyMap
	spinner   spinner.Model
	signIn    formModel
	signUp    formModel
	confirm   formModel
	hostedURL string
	state     authview.State
	pending   bool
	width     int
}

// NewAppModel creates the app around ctrl. hostedUI may be nil.
func NewAppModel(ctx context.Context, ctrl *authview.Controller, hostedUI *auth.HostedUI) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = focusedLabelStyle

	m := AppModel{
		ctx:     ctx,
		ctrl:    ctrl,
		keys:    newAppKeyMap(),
		spinner: s,
		signIn: newForm("Sign In",
			inputDef{label: "Email", field: authview.FieldEmail},
			inputDef{label: "Password", field: authview.FieldPassword, secret: true},
		),
		signUp: newForm("Create Account",
			inputDef{label: "Email", field: authview.FieldEmail},
			inputDef{label: "Password", field: authview.FieldPassword, secret: true},
			inputDef{label: "Confirm Password", field: authview.FieldConfirmPassword, secret: true},
		),
		confirm: newForm("Confirm Your Email",
			inputDef{label: "Confirmation Code", field: authview.FieldVerificationCode},
		),
		state:   authview.StateSignIn,
		pending: true,
	}
	if hostedUI != nil {
		m.hostedURL, _ = hostedUI.SignInURL()
	}
	return m
}

// Init checks for an existing session
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.run(m.ctrl.Start),
	)
}

func (m AppModel) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: op(ctx)}
	}
}

// activeForm returns the form of the current view, nil when signed in
func (m *AppModel) activeForm() *formModel {
	switch m.state {
	case authview.StateSignIn:
		return &m.signIn
	case authview.StateSignUp:
		return &m.signUp
	case authview.StateConfirmSignUp:
		return &m.confirm
	}
	return nil
}

// sync pulls the controller state into the model
func (m *AppModel) sync() tea.Cmd {
	snap := m.ctrl.Snapshot()
	changed := snap.State != m.state
	m.state = snap.State

	form := m.activeForm()
	if form == nil {
		return nil
	}
	form.load(snap.Credentials)
	if changed {
		return form.setFocus(0)
	}
	return nil
}

// Update handles messages for the active view
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case opDoneMsg:
		// a dropped duplicate submit finished, the real one is still running
		if errors.Is(msg.err, authview.ErrBusy) {
			return m, nil
		}
		m.pending = false
		return m, m.sync()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.forceQ) {
			return m, tea.Quit
		}
		if m.pending {
			return m, nil
		}
		if m.state == authview.StateAuthenticated {
			return m.updateWelcome(msg)
		}
		return m.updateForm(msg)
	}

	return m, nil
}

func (m AppModel) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.signOut):
		m.pending = true
		return m, m.run(m.ctrl.SignOut)
	}
	return m, nil
}

func (m AppModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	form := m.activeForm()

	switch {
	case key.Matches(msg, m.keys.submit):
		m.pending = true
		switch m.state {
		case authview.StateSignIn:
			return m, m.run(m.ctrl.SignIn)
		case authview.StateSignUp:
			return m, m.run(m.ctrl.SignUp)
		default:
			return m, m.run(m.ctrl.ConfirmSignUp)
		}

	case key.Matches(msg, m.keys.toggle):
		var err error
		switch m.state {
		case authview.StateSignIn:
			err = m.ctrl.ShowSignUp()
		case authview.StateSignUp:
			err = m.ctrl.ShowSignIn()
		}
		if err != nil {
			return m, nil
		}
		return m, m.sync()

	case key.Matches(msg, m.keys.next):
		return m, form.next()

	case key.Matches(msg, m.keys.prev):
		return m, form.prev()
	}

	field, value, cmd := form.update(msg)
	m.ctrl.SetField(field, value)
	return m, cmd
}

// View renders the active view
func (m AppModel) View() string {
	snap := m.ctrl.Snapshot()

	var body string
	var help []key.Binding
	switch m.state {
	case authview.StateAuthenticated:
		body = m.welcomeView(snap)
		help = []key.Binding{m.keys.signOut, m.keys.quit}
	default:
		form := m.activeForm()
		body = lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(form.title), "", form.view())
		help = []key.Binding{m.keys.submit, m.keys.next}
		if m.state != authview.StateConfirmSignUp {
			help = append(help, m.keys.toggle)
		}
		if m.state == authview.StateConfirmSignUp {
			body += "\n\n" + helpStyle("Enter the code we sent to "+snap.Credentials.Email)
		}
		if m.state == authview.StateSignIn && m.hostedURL != "" {
			body += "\n\n" + helpStyle("Or sign in with the browser:") + "\n" + statusMessageStyle(m.hostedURL)
		}
	}
	help = append(help, m.keys.forceQ)

	status := ""
	switch {
	case m.pending || snap.Busy:
		status = m.spinner.View() + " " + statusMessageStyle("Working...")
	case snap.ErrorMessage != "":
		status = errorMessageStyle(snap.ErrorMessage)
	}

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		body,
		"",
		status,
		"",
		helpStyle(helpLine(help)),
	))
}

func (m AppModel) welcomeView(snap authview.Snapshot) string {
	user := snap.User
	if user == nil {
		return titleStyle.Render("Welcome")
	}
	email := user.Email
	if email == "" {
		email = "(none)"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Welcome"),
		"",
		completeMessageStyle(fmt.Sprintf("Signed in as %s", user.Username)),
		"",
		fmt.Sprintf("%s %s", labelStyle.Render("Email:  "), email),
		fmt.Sprintf("%s %s", labelStyle.Render("User ID:"), user.UserID),
	)
}

func helpLine(bindings []key.Binding) string {
	line := ""
	for i, b := range bindings {
		if i > 0 {
			line += " • "
		}
		line += b.Help().Key + " " + b.Help().Desc
	}
	return line
}

// State returns the view currently shown
func (m AppModel) State() authview.State {
	return m.state
}
