// Package guard decides, for every navigation, whether the requested console screen is
// shown or the client is sent elsewhere. Decisions are a pure function of a session
// snapshot and the path; performing the redirect is the host's job.
package guard

import (
	"net/url"
	"path"
	"strings"

	"intelligencehub-console/pkg/session"
)

type Kind int

const (
	Allow Kind = iota
	RedirectToLogin
	RedirectToHome
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToHome:
		return "redirect_to_home"
	}
	return "unknown"
}

// Decision is the outcome for one navigation. Target is empty for Allow. Path is the
// normalised requested path, kept so the host can come back to it after login.
type Decision struct {
	Kind   Kind
	Target string
	Path   string
}

func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// RedirectURL is Target, with ?next= set when sending an unauthenticated visitor to login.
func (d Decision) RedirectURL() string {
	if d.Kind != RedirectToLogin || d.Path == "" || d.Path == "/" || d.Path == d.Target {
		return d.Target
	}
	return d.Target + "?next=" + url.QueryEscape(d.Path)
}

type Table struct {
	loginPath string
	homePath  string
	routes    []Route
}

type TableOption func(*Table)

func WithLoginPath(p string) TableOption {
	return func(t *Table) { t.loginPath = Normalize(p) }
}

func WithHomePath(p string) TableOption {
	return func(t *Table) { t.homePath = Normalize(p) }
}

func NewTable(routes []Route, opts ...TableOption) *Table {
	t := &Table{
		loginPath: DefaultLoginPath,
		homePath:  DefaultHomePath,
		routes:    make([]Route, 0, len(routes)),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, r := range routes {
		r.Path = Normalize(r.Path)
		t.routes = append(t.routes, r)
	}
	return t
}

func DefaultTable() *Table {
	return NewTable(DefaultRoutes())
}

func (t *Table) LoginPath() string { return t.loginPath }
func (t *Table) HomePath() string  { return t.homePath }

// Decide never fails.
//
//	signed out: login -> Allow, public -> Allow, anything else -> RedirectToLogin
//	signed in:  login, index and unknown paths -> RedirectToHome,
//	            admin paths for non-admins -> RedirectToHome, the rest -> Allow
func (t *Table) Decide(s session.Session, requested string) Decision {
	p := Normalize(requested)
	authed := s.Authenticated()

	if p == t.loginPath {
		if authed {
			return t.home(p)
		}
		return Decision{Kind: Allow, Path: p}
	}

	route, known := t.lookup(p)
	if known && route.Access == AccessPublic {
		return Decision{Kind: Allow, Path: p}
	}
	if !authed {
		return Decision{Kind: RedirectToLogin, Target: t.loginPath, Path: p}
	}
	if !known {
		return t.home(p)
	}
	if route.Access == AccessAdmin && !s.User.IsAdmin() {
		return t.home(p)
	}
	return Decision{Kind: Allow, Path: p}
}

func (t *Table) home(p string) Decision {
	if p == t.homePath {
		// The home route itself must never bounce to itself.
		return Decision{Kind: Allow, Path: p}
	}
	return Decision{Kind: RedirectToHome, Target: t.homePath, Path: p}
}

func (t *Table) lookup(p string) (Route, bool) {
	for _, r := range t.routes {
		if r.matches(p) {
			return r, true
		}
	}
	return Route{}, false
}

// Menu lists the sidebar entries visible to user; nil user sees nothing.
func (t *Table) Menu(user *session.User) []Route {
	if user == nil {
		return nil
	}
	var out []Route
	for _, r := range t.routes {
		if !r.Menu {
			continue
		}
		if r.Access == AccessAdmin && !user.IsAdmin() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Normalize strips query and fragment, cleans the path and drops a trailing slash.
func Normalize(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}

// Source is anything that can hand out a session snapshot, typically *session.Store.
type Source interface {
	Snapshot() session.Session
}

// Guard binds a table to one session source.
type Guard struct {
	table  *Table
	source Source
}

func New(table *Table, source Source) *Guard {
	return &Guard{table: table, source: source}
}

func (g *Guard) Check(requested string) Decision {
	return g.table.Decide(g.source.Snapshot(), requested)
}

func (g *Guard) Menu() []Route {
	return g.table.Menu(g.source.Snapshot().User)
}

func (g *Guard) Table() *Table {
	return g.table
}
