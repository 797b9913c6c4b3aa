package tui

import (
	"context"
	"testing"
	"time"

	"github.com/brizzai/cogauth/internal/auth"
	"github.com/brizzai/cogauth/internal/auth/providers"
	"github.com/brizzai/cogauth/internal/authview"
	"github.com/brizzai/cogauth/internal/config"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	t        *testing.T
	m        AppModel
	provider *providers.LocalProvider
	codes    map[string]string
}

func newHarness(t *testing.T, hostedUI *auth.HostedUI) *harness {
	t.Helper()
	h := &harness{t: t, codes: map[string]string{}}
	h.provider = providers.NewLocalProvider(&config.LocalConfig{MinPasswordLength: 8, CodeTTL: time.Hour}, zap.NewNop()).
		WithDeliverer(func(email, code string) { h.codes[email] = code })
	ctrl := authview.NewController(h.provider, authview.Options{}, zap.NewNop())
	h.m = NewAppModel(context.Background(), ctrl, hostedUI)
	return h
}

// start runs the commands returned by Init and delivers the session check result
func (h *harness) start() {
	h.t.Helper()
	msg := h.m.Init()()
	batch, ok := msg.(tea.BatchMsg)
	require.True(h.t, ok, "Init should batch its commands")

	for _, cmd := range batch {
		if done, ok := cmd().(opDoneMsg); ok {
			h.update(done)
			return
		}
	}
	h.t.Fatal("Init did not check the session")
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(AppModel)
	return cmd
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) press(k tea.KeyType) tea.Cmd {
	h.t.Helper()
	return h.update(tea.KeyMsg{Type: k})
}

// submit presses enter and delivers the result of the controller call
func (h *harness) submit() {
	h.t.Helper()
	cmd := h.press(tea.KeyEnter)
	require.NotNil(h.t, cmd)
	done, ok := cmd().(opDoneMsg)
	require.True(h.t, ok)
	h.update(done)
}

func TestApp_FullCycle(t *testing.T) {
	h := newHarness(t, nil)
	assert.True(t, h.m.pending, "session check is outstanding until Init completes")

	h.start()
	require.Equal(t, authview.StateSignIn, h.m.State())
	assert.Contains(t, h.m.View(), "Sign In")

	h.press(tea.KeyCtrlT)
	require.Equal(t, authview.StateSignUp, h.m.State())
	assert.Contains(t, h.m.View(), "Create Account")

	h.typeText("a@b.com")
	h.press(tea.KeyTab)
	h.typeText("password1")
	h.press(tea.KeyTab)
	h.typeText("password1")
	h.submit()
	require.Equal(t, authview.StateConfirmSignUp, h.m.State())
	assert.Contains(t, h.m.View(), "Enter the code we sent to a@b.com")

	h.typeText(h.codes["a@b.com"])
	h.submit()
	require.Equal(t, authview.StateSignIn, h.m.State())
	for _, in := range h.m.signIn.inputs {
		assert.Empty(t, in.input.Value(), "credentials are cleared after confirmation")
	}

	h.typeText("a@b.com")
	h.press(tea.KeyTab)
	h.typeText("password1")
	h.submit()
	require.Equal(t, authview.StateAuthenticated, h.m.State())

	view := h.m.View()
	assert.Contains(t, view, "Signed in as a@b.com")
	assert.Contains(t, view, "o sign out")

	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	require.True(t, h.m.pending)
	// the sign out command is still outstanding
	cmd := h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	assert.Nil(t, cmd)
}

func TestApp_SignOutReturnsToSignIn(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.provider.SignUp(ctx, "a@b.com", "password1"))
	require.NoError(t, h.provider.ConfirmSignUp(ctx, "a@b.com", h.codes["a@b.com"]))
	_, err := h.provider.SignIn(ctx, "a@b.com", "password1")
	require.NoError(t, err)

	h.start()
	require.Equal(t, authview.StateAuthenticated, h.m.State(), "existing session is resumed")

	cmd := h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	require.NotNil(t, cmd)
	h.update(cmd())

	assert.Equal(t, authview.StateSignIn, h.m.State())
	_, err = h.provider.GetCurrentSession(ctx)
	assert.Error(t, err)
}

func TestApp_ShowsErrorAndKeepsInput(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.typeText("nobody@b.com")
	h.press(tea.KeyTab)
	h.typeText("password1")
	h.submit()

	assert.Equal(t, authview.StateSignIn, h.m.State())
	assert.Contains(t, h.m.View(), "Incorrect username or password.")
	assert.Equal(t, "nobody@b.com", h.m.signIn.inputs[0].input.Value())
	assert.Equal(t, "password1", h.m.signIn.inputs[1].input.Value())
}

func TestApp_DropsInputWhileBusy(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	cmd := h.press(tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, h.m.pending)
	assert.Contains(t, h.m.View(), "Working...")

	assert.Nil(t, h.press(tea.KeyEnter))
	assert.Nil(t, h.press(tea.KeyCtrlT))
	assert.Equal(t, authview.StateSignIn, h.m.State())

	h.update(cmd())
	assert.False(t, h.m.pending)

	// a stray busy result must not unlock the form
	h.m.pending = true
	h.update(opDoneMsg{err: authview.ErrBusy})
	assert.True(t, h.m.pending)
}

func TestApp_QuitKeys(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	// q is text on a form
	h.typeText("q")
	assert.Equal(t, "q", h.m.signIn.inputs[0].input.Value())

	assert.Equal(t, tea.QuitMsg{}, runCmd(h.press(tea.KeyCtrlC)))
}

func TestApp_FocusCycles(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	h.press(tea.KeyCtrlT)

	assert.Equal(t, 0, h.m.signUp.focus)
	h.press(tea.KeyShiftTab)
	assert.Equal(t, 2, h.m.signUp.focus)
	h.press(tea.KeyTab)
	assert.Equal(t, 0, h.m.signUp.focus)
}

func TestApp_HostedUILink(t *testing.T) {
	ui := auth.NewHostedUI(&config.AuthConfig{
		Provider: config.ProviderCognito,
		Cognito:  config.CognitoConfig{Region: "us-east-1", UserPoolClientID: "client-1", Domain: "demo"},
	})
	h := newHarness(t, ui)
	h.start()

	assert.Contains(t, h.m.hostedURL, "https://demo.auth.us-east-1.amazoncognito.com/oauth2/authorize")
	assert.Contains(t, h.m.View(), "Or sign in with the browser:")
}

func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}
