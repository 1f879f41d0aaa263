package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"intelligencehub-console/pkg/session"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// interactive is replaced in tests, where go test may hand over a real terminal.
var interactive = isInteractive

func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptCredentials asks for whatever is missing. Without a terminal it fails with
// ErrMissingCredentials instead of blocking.
func promptCredentials(username, password string) (string, string, error) {
	if strings.TrimSpace(username) != "" && password != "" {
		return username, password, nil
	}
	if !interactive() {
		return "", "", session.ErrMissingCredentials
	}

	var fields []huh.Field
	if strings.TrimSpace(username) == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Placeholder("nome.cognome@azienda.it").
			Value(&username))
	}
	if password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&password))
	}

	form := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeBase())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", "", session.ErrLoginAbandoned
		}
		return "", "", fmt.Errorf("prompt failed: %w", err)
	}
	return username, password, nil
}
