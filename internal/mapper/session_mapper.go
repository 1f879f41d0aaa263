package mapper

import (
	"intelligencehub-console/internal/dto"
	"intelligencehub-console/pkg/guard"
	"intelligencehub-console/pkg/session"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToUserResponse(u *session.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		Id:                 u.ID,
		Email:              u.Email,
		Username:           u.Username,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		DisplayName:        u.DisplayName(),
		Role:               u.Role,
		IsAdmin:            u.IsAdmin(),
		MustChangePassword: u.MustChangePassword,
	}
}

func (m *SessionMapper) ToSessionResponse(s session.Session, pending bool) dto.SessionResponse {
	res := dto.SessionResponse{LoginPending: pending}
	if !s.Authenticated() {
		return res
	}
	res.Authenticated = true
	res.User = m.ToUserResponse(s.User)
	res.Token = s.Token.AccessToken
	res.TokenType = s.Token.TokenType
	if exp := s.ExpiresAt(); !exp.IsZero() {
		res.ExpiresAt = &exp
	}
	return res
}

func (m *SessionMapper) ToDecisionResponse(d guard.Decision) dto.RouteDecisionResponse {
	return dto.RouteDecisionResponse{
		Path:        d.Path,
		Decision:    d.Kind.String(),
		Allowed:     d.Allowed(),
		Target:      d.Target,
		RedirectURL: d.RedirectURL(),
	}
}

func (m *SessionMapper) ToMenuItems(routes []guard.Route) []dto.MenuItemResponse {
	items := make([]dto.MenuItemResponse, 0, len(routes))
	for _, r := range routes {
		items = append(items, dto.MenuItemResponse{
			Path:      r.Path,
			Title:     r.Title,
			Icon:      r.Icon,
			AdminOnly: r.Access == guard.AccessAdmin,
		})
	}
	return items
}
