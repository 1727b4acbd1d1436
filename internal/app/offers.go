package service

import (
	"context"
	"errors"
	"strings"

	"github.com/okian/squadmarket/internal/adapters/repository"
	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/okian/squadmarket/pkg/logger"
	"github.com/okian/squadmarket/pkg/metrics"
)

// Caller-facing messages for offer creation.
const (
	MsgPlayerIDEmpty  = `"playerId" field is empty`
	MsgPriceEmpty     = `"price" field is empty`
	MsgPriceInvalid   = `"price" field is invalid`
	MsgPlayerNotExist = "Player doesn't exist"
	MsgPlayerNotOwned = "Player doesn't belong to logged user's team"
	MsgOfferExists    = "An offer for this player already exists"
)

const offerRejectInvalid = "invalid"

// CreateOfferRequest lists a player for sale at Price.
type CreateOfferRequest struct {
	PlayerID string `json:"playerId"`
	Price    string `json:"price"`
}

// CreateOffer lists one of the principal's players for sale. The discount is
// computed from the player's current value and frozen with the offer.
func (s *Service) CreateOffer(ctx context.Context, principal string, req CreateOfferRequest) (err error) {
	const op = "service.CreateOffer"
	ctx, end := s.span(ctx, op)
	defer func() { end(err) }()

	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		metrics.RecordOfferRejected(offerRejectInvalid)
		return NewKind(op, ErrBadRequest, MsgPlayerIDEmpty)
	}
	if strings.TrimSpace(req.Price) == "" {
		metrics.RecordOfferRejected(offerRejectInvalid)
		return NewKind(op, ErrBadRequest, MsgPriceEmpty)
	}
	price, err := money.ParseMoney(req.Price)
	if err != nil {
		metrics.RecordOfferRejected(offerRejectInvalid)
		return WrapKind(op, ErrBadRequest, MsgPriceInvalid, err)
	}
	if price <= 0 {
		metrics.RecordOfferRejected(offerRejectInvalid)
		return NewKind(op, ErrBadRequest, MsgPriceInvalid)
	}

	player, err := s.store.GetPlayer(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordOfferRejected("player_not_found")
		return WrapKind(op, ErrNotFound, MsgPlayerNotExist, err)
	}
	if err != nil {
		return s.internal(ctx, op, err)
	}

	if player.TeamID != principal {
		metrics.RecordOfferRejected("not_owner")
		return NewKind(op, ErrForbidden, MsgPlayerNotOwned)
	}

	_, err = s.store.GetOffer(ctx, playerID)
	switch {
	case err == nil:
		metrics.RecordOfferRejected("duplicate")
		return NewKind(op, ErrBadRequest, MsgOfferExists)
	case !errors.Is(err, repository.ErrNotFound):
		return s.internal(ctx, op, err)
	}

	offer, err := model.NewOffer(player, price)
	if err != nil {
		metrics.RecordOfferRejected(offerRejectInvalid)
		return WrapKind(op, ErrBadRequest, MsgPriceInvalid, err)
	}

	err = s.store.PutOfferIfAbsent(ctx, offer)
	if errors.Is(err, repository.ErrAlreadyExists) {
		metrics.RecordOfferRejected("duplicate")
		return WrapKind(op, ErrBadRequest, MsgOfferExists, err)
	}
	if err != nil {
		return s.internal(ctx, op, err)
	}

	metrics.RecordOfferCreated()
	s.logger.Info(ctx, "offer created",
		logger.String("playerId", offer.ID),
		logger.String("team", principal),
		logger.String("price", offer.Price.String()),
		logger.String("discount", offer.Discount.String()),
	)
	return nil
}
