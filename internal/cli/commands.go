package cli

import (
	"context"
	"fmt"
	"time"

	"intelligencehub-console/pkg/guard"
	"intelligencehub-console/pkg/session"

	"github.com/spf13/cobra"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Sign in with username and password. Missing values are asked for interactively
when a terminal is attached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			next, _ := cmd.Flags().GetString("next")

			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if app.store.IsAuthenticated() {
				user, _ := app.store.CurrentUser()
				warnColor.Fprintf(out, "Già autenticato come %s, esegui prima hubctl logout\n", user.DisplayName())
				return nil
			}

			username, password, err = promptCredentials(username, password)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			s, err := app.store.Login(ctx, username, password)
			if err != nil {
				return err
			}

			printSession(out, s)
			fmt.Fprintf(out, "Prossima schermata: %s\n", landing(app.table, s, next))
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "username or email")
	cmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")
	cmd.Flags().String("next", "", "screen to open after signing in")
	return cmd
}

// landing is where the console goes after login: next when the route table allows it,
// the home screen otherwise.
func landing(table *guard.Table, s session.Session, next string) string {
	if next != "" {
		if d := table.Decide(s, next); d.Allowed() {
			return d.Path
		}
	}
	return table.HomePath()
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			wasSignedIn := app.store.IsAuthenticated()
			app.store.Logout()

			if wasSignedIn {
				okColor.Fprintln(cmd.OutOrStdout(), "Disconnesso")
			} else {
				dimColor.Fprintln(cmd.OutOrStdout(), "Nessuna sessione attiva")
			}
			return nil
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), app.store.Snapshot())
			return nil
		},
	}
}

func newRouteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "route <path>",
		Short:   "Show whether a console screen may be opened",
		Example: "  hubctl route /admin/users",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			printDecision(cmd.OutOrStdout(), app.table.Decide(app.store.Snapshot(), args[0]))
			return nil
		},
	}
}

func newMenuCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the sidebar entries of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			printMenu(cmd.OutOrStdout(), app.table.Menu(app.store.Snapshot().User))
			return nil
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow session changes made by other hubctl runs",
		Long: `Watch the session file and print the session state and the home screen decision
each time another hubctl process signs in or out. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persister := NewFilePersister(opts.sessionFile)
			table := opts.table()
			out := cmd.OutOrStdout()

			watcher, err := NewSessionWatcher(opts.sessionFile)
			if err != nil {
				return err
			}
			defer watcher.Stop()

			changes, errs, err := watcher.Watch(cmd.Context())
			if err != nil {
				return err
			}

			report := func() {
				s := currentFromFile(persister, time.Now())
				dimColor.Fprintf(out, "[%s] ", time.Now().Format(time.TimeOnly))
				printSession(out, s)
				printDecision(out, table.Decide(s, table.HomePath()))
			}

			report()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case _, ok := <-changes:
					if !ok {
						return nil
					}
					report()
				case err := <-errs:
					warnColor.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
				}
			}
		},
	}
}

// currentFromFile reads the file without contacting the backend. Unreadable or expired
// sessions count as signed out.
func currentFromFile(p *FilePersister, now time.Time) session.Session {
	rec, err := p.Record()
	if err != nil || rec == nil {
		return session.Session{}
	}
	s := rec.Session()
	if s == nil || session.Expired(s.Token, now) {
		return session.Session{}
	}
	return *s
}
