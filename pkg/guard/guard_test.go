package guard

import (
	"testing"

	"intelligencehub-console/pkg/session"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func signedIn(role string) session.Session {
	return session.Session{
		User:  &session.User{ID: "u-1", Email: "admin@x.com", Role: role},
		Token: &oauth2.Token{AccessToken: "tok"},
	}
}

func TestDecide(t *testing.T) {
	table := DefaultTable()
	anon := session.Session{}
	admin := signedIn("admin")
	user := signedIn("user")

	tests := []struct {
		name       string
		sess       session.Session
		path       string
		wantKind   Kind
		wantTarget string
	}{
		{name: "anon login", sess: anon, path: "/login", wantKind: Allow},
		{name: "anon dashboard", sess: anon, path: "/dashboard", wantKind: RedirectToLogin, wantTarget: "/login"},
		{name: "anon users", sess: anon, path: "/users", wantKind: RedirectToLogin, wantTarget: "/login"},
		{name: "anon index", sess: anon, path: "/", wantKind: RedirectToLogin, wantTarget: "/login"},
		{name: "anon unknown", sess: anon, path: "/nope", wantKind: RedirectToLogin, wantTarget: "/login"},
		{name: "anon admin", sess: anon, path: "/admin/settings", wantKind: RedirectToLogin, wantTarget: "/login"},
		{name: "authed login", sess: admin, path: "/login", wantKind: RedirectToHome, wantTarget: "/dashboard"},
		{name: "authed dashboard", sess: admin, path: "/dashboard", wantKind: Allow},
		{name: "authed users", sess: admin, path: "/users", wantKind: Allow},
		{name: "authed index", sess: admin, path: "/", wantKind: RedirectToHome, wantTarget: "/dashboard"},
		{name: "authed unknown", sess: admin, path: "/nope", wantKind: RedirectToHome, wantTarget: "/dashboard"},
		{name: "admin panel", sess: admin, path: "/admin", wantKind: Allow},
		{name: "admin sub page", sess: admin, path: "/admin/users", wantKind: Allow},
		{name: "non admin panel", sess: user, path: "/admin/users", wantKind: RedirectToHome, wantTarget: "/dashboard"},
		{name: "non admin chat", sess: user, path: "/chat", wantKind: Allow},
		{name: "prefix is not a match", sess: user, path: "/administrator", wantKind: RedirectToHome, wantTarget: "/dashboard"},
		{name: "trailing slash", sess: admin, path: "/users/", wantKind: Allow},
		{name: "query string", sess: anon, path: "/login?next=%2Fusers", wantKind: Allow},
		{name: "dot segments", sess: anon, path: "/admin/../login", wantKind: Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := table.Decide(tt.sess, tt.path)
			assert.Equal(t, tt.wantKind, d.Kind, d.Kind.String())
			assert.Equal(t, tt.wantTarget, d.Target)
		})
	}
}

func TestRedirectURL(t *testing.T) {
	table := DefaultTable()

	d := table.Decide(session.Session{}, "/users")
	assert.Equal(t, "/login?next=%2Fusers", d.RedirectURL())

	d = table.Decide(session.Session{}, "/")
	assert.Equal(t, "/login", d.RedirectURL())

	d = table.Decide(signedIn("admin"), "/login")
	assert.Equal(t, "/dashboard", d.RedirectURL())

	d = table.Decide(signedIn("admin"), "/users")
	assert.Equal(t, "", d.RedirectURL())
}

func TestCustomPaths(t *testing.T) {
	table := NewTable(DefaultRoutes(), WithLoginPath("/auth/login/"), WithHomePath("chat"))

	assert.Equal(t, "/auth/login", table.LoginPath())
	assert.Equal(t, "/chat", table.HomePath())
	assert.Equal(t, Decision{Kind: RedirectToHome, Target: "/chat", Path: "/auth/login"}, table.Decide(signedIn("user"), "/auth/login"))
	assert.Equal(t, RedirectToLogin, table.Decide(session.Session{}, "/login").Kind)
}

func TestPublicRoute(t *testing.T) {
	table := NewTable([]Route{{Path: "/status", Access: AccessPublic}})

	assert.True(t, table.Decide(session.Session{}, "/status").Allowed())
	assert.True(t, table.Decide(signedIn("user"), "/status").Allowed())
}

func TestMenu(t *testing.T) {
	table := DefaultTable()

	assert.Empty(t, table.Menu(nil))

	admin := signedIn("admin")
	adminMenu := table.Menu(admin.User)
	user := signedIn("user")
	userMenu := table.Menu(user.User)

	assert.Len(t, adminMenu, len(userMenu)+1)
	assert.Equal(t, "/dashboard", userMenu[0].Path)
	assert.Equal(t, "/admin", adminMenu[len(adminMenu)-1].Path)
	for _, r := range userMenu {
		assert.NotEqual(t, "/change-password", r.Path)
	}
}

type fixedSource struct{ s session.Session }

func (f fixedSource) Snapshot() session.Session { return f.s }

func TestGuardReadsSource(t *testing.T) {
	g := New(DefaultTable(), fixedSource{s: signedIn("user")})

	assert.True(t, g.Check("/documents").Allowed())
	assert.Equal(t, RedirectToHome, g.Check("/login").Kind)
	assert.NotEmpty(t, g.Menu())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/", Normalize(""))
	assert.Equal(t, "/", Normalize("?x=1"))
	assert.Equal(t, "/users", Normalize("users/"))
	assert.Equal(t, "/users", Normalize("/users#top"))
	assert.Equal(t, "/a/b", Normalize("//a//b/"))
}
