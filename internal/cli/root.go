// Package cli implements hubctl, the terminal client of the IntelligenceHUB console. It
// keeps one session in a YAML file and applies the same route table as the web console.
package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"intelligencehub-console/pkg/authclient"
	"intelligencehub-console/pkg/guard"
	"intelligencehub-console/pkg/session"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	backend     string
	loginPath   string
	mePath      string
	homePath    string
	sessionFile string
	timeout     time.Duration
}

// consoleApp is what every command works with once the session file is loaded.
type consoleApp struct {
	store     *session.Store
	persister *FilePersister
	table     *guard.Table
}

// NewRootCommand builds a fresh command tree. Tests build one per case.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "hubctl",
		Short: "IntelligenceHUB console from the terminal",
		Long: `hubctl signs in to the IntelligenceHUB backend, keeps the session in a local file
and answers the same navigation questions as the web console: which screens the
signed-in user may open and which sidebar entries they see.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", envOr("BACKEND_URL", "http://localhost:8000"), "backend base URL")
	flags.StringVar(&opts.loginPath, "login-path", envOr("BACKEND_LOGIN_PATH", authclient.DefaultLoginPath), "login endpoint path")
	flags.StringVar(&opts.mePath, "me-path", envOr("BACKEND_ME_PATH", authclient.DefaultMePath), "profile endpoint path")
	flags.StringVar(&opts.homePath, "home", envOr("CONSOLE_HOME_PATH", guard.DefaultHomePath), "landing screen after login")
	flags.StringVar(&opts.sessionFile, "session-file", envOr("HUBCTL_SESSION_FILE", DefaultSessionFile()), "where the session is kept")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "backend request timeout")

	root.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newRouteCommand(opts),
		newMenuCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

// Execute runs hubctl and prints the failure, if any, to stderr.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return err
}

func (o *rootOptions) table() *guard.Table {
	return guard.NewTable(guard.DefaultRoutes(), guard.WithHomePath(o.homePath))
}

// open builds the store and restores the saved session. An expired session is reported
// on w and dropped; it is not an error for the command.
func (o *rootOptions) open(cmd *cobra.Command) (*consoleApp, error) {
	persister := NewFilePersister(o.sessionFile)
	client := authclient.New(o.backend, authclient.WithPaths(o.loginPath, o.mePath))
	store := session.NewStore(client,
		session.WithPersister(persister),
		session.WithErrorHandler(func(op string, err error) {
			warnColor.Fprintf(cmd.ErrOrStderr(), "sessione non salvata (%s): %v\n", op, err)
		}),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	_, err := store.Restore(ctx)
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		warnColor.Fprintln(cmd.ErrOrStderr(), session.Message(err))
	case err != nil:
		return nil, err
	}

	return &consoleApp{store: store, persister: persister, table: o.table()}, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
