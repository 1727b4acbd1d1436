package service

import (
	"context"
	"errors"

	"github.com/okian/squadmarket/internal/adapters/repository"
	"github.com/okian/squadmarket/internal/domain/squad"
	"github.com/okian/squadmarket/pkg/logger"
)

// SeedTeams creates a starting team and roster for every id that has no
// team yet. Players are written before the team that references them.
func (s *Service) SeedTeams(ctx context.Context, ids []string, opts ...squad.Option) (created int, err error) {
	const op = "service.SeedTeams"
	ctx, end := s.span(ctx, op)
	defer func() { end(err) }()

	for _, id := range ids {
		if id == "" {
			continue
		}
		_, err = s.store.GetTeam(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, s.internal(ctx, op, err)
		}

		team, players := squad.Generate(id, opts...)
		for _, p := range players {
			if err = s.store.PutPlayer(ctx, p); err != nil {
				return created, s.internal(ctx, op, err)
			}
		}
		if err = s.store.PutTeam(ctx, team); err != nil {
			return created, s.internal(ctx, op, err)
		}
		created++
		s.logger.Debug(ctx, "team seeded",
			logger.String("teamId", id),
			logger.Int("players", len(players)),
		)
	}
	if created > 0 {
		s.logger.Info(ctx, "teams seeded", logger.Int("created", created))
	}
	return created, nil
}
