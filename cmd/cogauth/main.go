package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/brizzai/cogauth/internal/auth"
	"github.com/brizzai/cogauth/internal/auth/providers"
	"github.com/brizzai/cogauth/internal/authview"
	"github.com/brizzai/cogauth/internal/config"
	"github.com/brizzai/cogauth/internal/logger"
	"github.com/brizzai/cogauth/internal/session"
	"github.com/brizzai/cogauth/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cogauth",
	Short: "Sign in to an AWS Cognito user pool from the terminal",
	Long: `cogauth is a terminal client for AWS Cognito user pools.
It lets you sign in, create an account, confirm it with the emailed code and sign out.
The session is kept on disk so other commands can reuse it.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var whoamiCmd = &cobra.Command{
	Use:          "whoami",
	Short:        "Show the signed in user",
	SilenceUsage: true,
	RunE:         runWhoami,
}

var logoutCmd = &cobra.Command{
	Use:          "logout",
	Short:        "Sign out and drop the stored session",
	SilenceUsage: true,
	RunE:         runLogout,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	rootCmd.AddCommand(whoamiCmd, logoutCmd)
}

// deps holds what the commands pull out of the fx graph
type deps struct {
	app        *fx.App
	controller *authview.Controller
	provider   providers.Provider
	hostedUI   *auth.HostedUI
	logger     *zap.Logger
}

// start loads the configuration and starts the fx app
func start(ctx context.Context, cmd *cobra.Command) (*deps, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err = logger.InitLogger(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.GetLogger().Debug("Loaded configuration",
		zap.String("provider", string(cfg.Auth.Provider)),
		zap.Duration("timeout", cfg.Auth.Timeout),
		zap.Any("cognito", cfg.Auth.Cognito.Redacted()),
		zap.String("session_path", cfg.Session.Path),
	)

	d := &deps{}
	d.app = fx.New(
		fx.Supply(cfg),
		config.Module,
		logger.Module,
		session.Module,
		auth.Module,
		authview.Module,
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Populate(&d.controller, &d.provider, &d.hostedUI, &d.logger),
	)
	if err = d.app.Err(); err != nil {
		return nil, err
	}
	if err = d.app.Start(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *deps) stop() {
	if err := d.app.Stop(context.Background()); err != nil {
		d.logger.Warn("Failed to stop cleanly", zap.Error(err))
	}
}

// runTUI is the main function that runs the TUI
func runTUI(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	ctx := cmd.Context()
	d, err := start(ctx, cmd)
	if err != nil {
		return err
	}
	defer d.stop()

	p := tea.NewProgram(tui.NewAppModel(ctx, d.controller, d.hostedUI), tea.WithContext(ctx))

	// Local accounts have no mailbox, print the code above the form instead
	if local, ok := d.provider.(*providers.LocalProvider); ok {
		local.WithDeliverer(func(email, code string) {
			p.Println(fmt.Sprintf("Confirmation code for %s: %s", email, code))
		})
	}

	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}

	if final, ok := m.(tui.AppModel); ok && final.State() == authview.StateAuthenticated {
		user := d.controller.Snapshot().User
		pterm.Success.Printfln("Signed in as %s", pterm.LightGreen(user.Username))
	}
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := start(ctx, cmd)
	if err != nil {
		return err
	}
	defer d.stop()

	if err = d.controller.Start(ctx); err != nil {
		return err
	}
	snap := d.controller.Snapshot()
	if snap.State != authview.StateAuthenticated {
		pterm.Warning.Println("Not signed in")
		return nil
	}

	return pterm.DefaultTable.WithData(pterm.TableData{
		{"Username", snap.User.Username},
		{"Email", snap.User.Email},
		{"User ID", snap.User.UserID},
	}).Render()
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := start(ctx, cmd)
	if err != nil {
		return err
	}
	defer d.stop()

	if err = d.controller.Start(ctx); err != nil {
		return err
	}
	if d.controller.Snapshot().State != authview.StateAuthenticated {
		pterm.Info.Println("No active session")
		return nil
	}
	if err = d.controller.SignOut(ctx); err != nil {
		return err
	}
	pterm.Success.Println("Signed out")
	return nil
}
