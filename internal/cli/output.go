package cli

import (
	"fmt"
	"io"
	"time"

	"intelligencehub-console/pkg/guard"
	"intelligencehub-console/pkg/session"

	"github.com/fatih/color"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.FgCyan)
	dimColor   = color.New(color.Faint)
)

func printSession(w io.Writer, s session.Session) {
	if !s.Authenticated() {
		warnColor.Fprintln(w, "Non autenticato")
		return
	}
	u := s.User
	okColor.Fprintf(w, "Autenticato come %s\n", u.DisplayName())
	printField(w, "ID", u.ID)
	printField(w, "Email", u.Email)
	if u.Username != "" {
		printField(w, "Username", u.Username)
	}
	printField(w, "Ruolo", u.Role)
	if exp := s.ExpiresAt(); !exp.IsZero() {
		printField(w, "Scadenza", exp.Local().Format(time.RFC1123))
	}
	if u.MustChangePassword {
		warnColor.Fprintln(w, "La password deve essere cambiata (/change-password)")
	}
}

func printField(w io.Writer, label, value string) {
	labelColor.Fprintf(w, "  %-9s ", label+":")
	fmt.Fprintln(w, value)
}

func printDecision(w io.Writer, d guard.Decision) {
	switch d.Kind {
	case guard.Allow:
		okColor.Fprintf(w, "%s: consentito\n", d.Path)
	case guard.RedirectToLogin:
		warnColor.Fprintf(w, "%s: reindirizzato a %s\n", d.Path, d.RedirectURL())
	case guard.RedirectToHome:
		warnColor.Fprintf(w, "%s: reindirizzato a %s\n", d.Path, d.RedirectURL())
	}
}

func printMenu(w io.Writer, routes []guard.Route) {
	if len(routes) == 0 {
		dimColor.Fprintln(w, "Nessuna voce di menu")
		return
	}
	for _, r := range routes {
		icon := r.Icon
		if icon == "" {
			icon = " "
		}
		fmt.Fprintf(w, "%s %-22s ", icon, r.Title)
		dimColor.Fprintln(w, r.Path)
	}
}

// printError shows the operator message for session errors and the raw text otherwise,
// which covers cobra's flag and argument errors.
func printError(w io.Writer, err error) {
	if session.KindOf(err) != 0 {
		errColor.Fprintln(w, session.Message(err))
		return
	}
	errColor.Fprintln(w, err.Error())
}
