package service

import (
	"context"
	"errors"
	"sort"

	"github.com/okian/squadmarket/internal/adapters/repository"
	"github.com/okian/squadmarket/internal/domain/types"
)

// MsgTeamNotFound is returned when the principal has no team.
const MsgTeamNotFound = "Team not found"

// GetTeam returns the principal's team with its roster ordered by player id.
func (s *Service) GetTeam(ctx context.Context, principal string) (out types.Team, err error) {
	const op = "service.GetTeam"
	ctx, end := s.span(ctx, op)
	defer func() { end(err) }()

	team, err := s.store.GetTeam(ctx, principal)
	if errors.Is(err, repository.ErrNotFound) {
		return types.Team{}, WrapKind(op, ErrNotFound, MsgTeamNotFound, err)
	}
	if err != nil {
		return types.Team{}, s.internal(ctx, op, err)
	}

	players, err := s.store.BatchGetPlayers(ctx, team.PlayerIDs)
	if err != nil {
		return types.Team{}, s.internal(ctx, op, err)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	out = types.Team{
		ID:      team.ID,
		Name:    team.Name,
		Country: team.Country,
		Value:   team.Value,
		Budget:  team.Budget,
		Players: make([]types.Player, 0, len(players)),
	}
	for _, p := range players {
		out.Players = append(out.Players, types.PlayerOf(p))
	}
	return out, nil
}
