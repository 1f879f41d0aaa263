package service

import (
	"context"

	"intelligencehub-console/internal/dto"
	"intelligencehub-console/internal/mapper"
	"intelligencehub-console/pkg/guard"
)

type INavigationService interface {
	Decide(ctx context.Context, consoleID, path string) guard.Decision
	Route(ctx context.Context, consoleID, path string) (*dto.RouteDecisionResponse, error)
	Menu(ctx context.Context, consoleID string) (*dto.MenuResponse, error)
}

type navigationService struct {
	consoles IConsoleService
	table    *guard.Table
	mapper   *mapper.SessionMapper
}

func NewNavigationService(consoles IConsoleService, table *guard.Table) INavigationService {
	return &navigationService{
		consoles: consoles,
		table:    table,
		mapper:   mapper.NewSessionMapper(),
	}
}

func (s *navigationService) guard(ctx context.Context, consoleID string) *guard.Guard {
	return guard.New(s.table, s.consoles.Open(ctx, consoleID).Store)
}

func (s *navigationService) Decide(ctx context.Context, consoleID, path string) guard.Decision {
	return s.guard(ctx, consoleID).Check(path)
}

func (s *navigationService) Route(ctx context.Context, consoleID, path string) (*dto.RouteDecisionResponse, error) {
	res := s.mapper.ToDecisionResponse(s.Decide(ctx, consoleID, path))
	return &res, nil
}

func (s *navigationService) Menu(ctx context.Context, consoleID string) (*dto.MenuResponse, error) {
	store := s.consoles.Open(ctx, consoleID).Store
	snap := store.Snapshot()
	return &dto.MenuResponse{
		User:  s.mapper.ToUserResponse(snap.User),
		Items: s.mapper.ToMenuItems(s.table.Menu(snap.User)),
	}, nil
}
