package dto

type RouteDecisionResponse struct {
	Path        string `json:"path"`
	Decision    string `json:"decision"`
	Allowed     bool   `json:"allowed"`
	Target      string `json:"target,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

type MenuItemResponse struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	AdminOnly bool   `json:"admin_only"`
}

type MenuResponse struct {
	User  *UserResponse      `json:"user"`
	Items []MenuItemResponse `json:"items"`
}
