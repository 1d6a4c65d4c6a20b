package cmd

import (
	"fmt"
	"os"

	"finchat/api"
	"finchat/config"
	"finchat/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App bundles the dependencies main wires up for the commands.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sessions *session.Store
	API      *api.Client
}

var (
	app           *App
	workspaceFlag string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "finchat",
	Short: "Terminal client for the financial research assistant",
	Long: `finchat is a terminal client for the financial research assistant backend.

It covers the full surface: account registration and login, real-time chat
over WebSocket (with HTTP fallback when the socket is down), document
uploads, report generation, and multi-user workspaces.

Quick start:
  finchat register            # Create an account
  finchat login               # Obtain a session
  finchat chat                # Start chatting
  finchat workspaces list     # See shared workspaces`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			if logger, err := config.InitLogger("debug"); err == nil {
				app.Logger = logger
			}
		}
	},
}

// Execute runs the CLI with the given app wiring.
func Execute(a *App) {
	app = a
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace id to scope the command to (defaults to the selected workspace)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// resolveWorkspace applies the flag-over-remembered fallback used by every
// workspace-scoped command.
func resolveWorkspace() string {
	if workspaceFlag != "" {
		return workspaceFlag
	}
	return app.Sessions.SelectedWorkspace()
}

// requireSession fails fast with a helpful message when not logged in.
func requireSession() error {
	if app.Sessions.Current() == nil {
		return fmt.Errorf("not logged in; run 'finchat login' first")
	}
	return nil
}
