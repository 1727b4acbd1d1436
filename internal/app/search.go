package service

import (
	"context"
	"errors"

	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/search"
	"github.com/okian/squadmarket/internal/domain/types"
	"github.com/okian/squadmarket/pkg/logger"
	"github.com/okian/squadmarket/pkg/metrics"
)

// Caller-facing messages for rejected search queries. MsgInvalidCursor covers
// cursors that cannot be decoded or do not belong to the query they are sent with.
const (
	MsgInvalidCursor    = "Invalid cursor"
	MsgInvalidPosition  = `"position" must be one of GOALKEEPER, DEFENDER, MIDFIELDER, ATTACKER`
	MsgInvalidOrderBy   = `"orderBy" must be price or discount`
	MsgInvalidDirection = `"orderDirection" must be ASC or DESC`
	MsgInvalidPageSize  = `"pageSize" must be a positive integer`
	MsgInvalidQuery     = "Invalid search query"
)

// SearchOffers returns one page of active offers joined with their players.
// The query is served by the single index matching its filters and sort.
func (s *Service) SearchOffers(ctx context.Context, params search.Params) (res types.SearchResult, err error) {
	const op = "service.SearchOffers"
	ctx, end := s.span(ctx, op)
	defer func() { end(err) }()

	q, err := search.ParseQuery(params, s.defaultPageSize)
	if err != nil {
		return types.SearchResult{}, WrapKind(op, ErrBadRequest, queryMessage(err), err)
	}

	iq := q.IndexQuery()
	page, err := s.store.QueryOffers(ctx, iq)
	if err != nil {
		return types.SearchResult{}, s.internal(ctx, op, err)
	}

	ids := make([]string, len(page.Rows))
	for i, r := range page.Rows {
		ids[i] = r.OfferID
	}

	res.Offers = []types.Offer{}
	if len(ids) > 0 {
		offers, err := s.store.BatchGetOffers(ctx, ids)
		if err != nil {
			return types.SearchResult{}, s.internal(ctx, op, err)
		}
		players, err := s.store.BatchGetPlayers(ctx, ids)
		if err != nil {
			return types.SearchResult{}, s.internal(ctx, op, err)
		}

		offerByID := make(map[string]model.Offer, len(offers))
		for _, o := range offers {
			offerByID[o.ID] = o
		}
		playerByID := make(map[string]model.Player, len(players))
		for _, p := range players {
			playerByID[p.ID] = p
		}

		res.Offers = make([]types.Offer, 0, len(ids))
		for _, id := range ids {
			o, ok := offerByID[id]
			if !ok {
				// Bought between the index scan and the point lookup.
				continue
			}
			p, ok := playerByID[id]
			if !ok {
				s.logger.Warn(ctx, "offer without player", logger.String("offerId", id))
				continue
			}
			res.Offers = append(res.Offers, types.OfferOf(o, p))
		}
	}

	if page.Next != nil {
		res.NextCursor = page.Next.Encode()
	}

	metrics.RecordSearch(iq.Index.Name, len(res.Offers))
	s.logger.Debug(ctx, "offers searched",
		logger.String("index", iq.Index.Name),
		logger.String("partition", iq.PartitionValue),
		logger.String("direction", iq.Direction.String()),
		logger.Int("results", len(res.Offers)),
	)
	return res, nil
}

func queryMessage(err error) string {
	switch {
	case errors.Is(err, search.ErrInvalidCursor):
		return MsgInvalidCursor
	case errors.Is(err, search.ErrInvalidPosition):
		return MsgInvalidPosition
	case errors.Is(err, search.ErrInvalidOrderBy):
		return MsgInvalidOrderBy
	case errors.Is(err, search.ErrInvalidDirection):
		return MsgInvalidDirection
	case errors.Is(err, search.ErrInvalidPageSize):
		return MsgInvalidPageSize
	default:
		return MsgInvalidQuery
	}
}
