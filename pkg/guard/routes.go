package guard

import "strings"

type Access int

const (
	// AccessPublic routes are reachable by anyone.
	AccessPublic Access = iota
	// AccessProtected routes need a session.
	AccessProtected
	// AccessAdmin routes need a session whose user is an administrator.
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessAdmin:
		return "admin"
	}
	return "unknown"
}

// Route is one entry of the console route table.
type Route struct {
	Path   string
	Title  string
	Icon   string
	Access Access
	// Prefix also matches every path below Path.
	Prefix bool
	// Menu marks routes shown in the sidebar.
	Menu bool
}

func (r Route) matches(path string) bool {
	if path == r.Path {
		return true
	}
	return r.Prefix && strings.HasPrefix(path, r.Path+"/")
}

const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/dashboard"
)

// DefaultRoutes is the IntelligenceHUB console layout.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/dashboard", Title: "Dashboard", Icon: "📊", Access: AccessProtected, Menu: true},
		{Path: "/users", Title: "Gestione Utenti", Icon: "👥", Access: AccessProtected, Menu: true},
		{Path: "/aziende", Title: "Aziende", Icon: "🏢", Access: AccessProtected, Menu: true},
		{Path: "/activities", Title: "Attività & Task", Icon: "📋", Access: AccessProtected, Menu: true},
		{Path: "/articoli", Title: "Articoli", Icon: "📄", Access: AccessProtected, Menu: true},
		{Path: "/kit-commerciali", Title: "Kit Commerciali", Icon: "📦", Access: AccessProtected, Menu: true},
		{Path: "/chat", Title: "IntelliChat AI", Icon: "🤖", Access: AccessProtected, Menu: true},
		{Path: "/documents", Title: "Documenti RAG", Icon: "📄", Access: AccessProtected, Menu: true},
		{Path: "/web-scraping", Title: "Web Scraping", Icon: "🕷️", Access: AccessProtected, Menu: true},
		{Path: "/assessment", Title: "Assessment", Icon: "📊", Access: AccessProtected, Menu: true},
		{Path: "/email-center", Title: "Email Center", Icon: "📧", Access: AccessProtected, Menu: true},
		{Path: "/change-password", Title: "Cambia Password", Access: AccessProtected},
		{Path: "/admin", Title: "Amministrazione", Icon: "⚙️", Access: AccessAdmin, Prefix: true, Menu: true},
	}
}
