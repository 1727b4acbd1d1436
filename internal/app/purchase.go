package service

import (
	"context"
	"errors"
	"strings"

	"github.com/okian/squadmarket/internal/adapters/repository"
	"github.com/okian/squadmarket/internal/domain/dedupe"
	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/okian/squadmarket/pkg/logger"
	"github.com/okian/squadmarket/pkg/metrics"
)

// Caller-facing messages for purchases.
const (
	MsgPlayerNotFound    = "Player not found"
	MsgOwnTeam           = "Cannot buy a player from your own team"
	MsgNoOffer           = "No offer found for this player"
	MsgNotEnoughBudget   = "Not enough budget to purchase player"
	MsgDuplicatePurchase = "Duplicate purchase request"
)

// PurchaseRequest buys the listed player PlayerID. A non-empty
// IdempotencyKey makes a repeat of the same request fail with ErrConflict.
type PurchaseRequest struct {
	PlayerID       string `json:"playerId"`
	IdempotencyKey string `json:"-"`
}

// PurchasePlayer moves a listed player to the principal's team. Budgets,
// team values and the player's value change and the offer is removed in one
// atomic commit. A commit lost to a concurrent write is retried from the
// read, up to the configured number of attempts.
func (s *Service) PurchasePlayer(ctx context.Context, principal string, req PurchaseRequest) (err error) {
	const op = "service.PurchasePlayer"
	ctx, end := s.span(ctx, op)
	defer func() { end(err) }()

	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		metrics.RecordPurchase("rejected")
		return NewKind(op, ErrBadRequest, MsgPlayerIDEmpty)
	}

	if req.IdempotencyKey != "" {
		key := dedupe.Key(principal, req.IdempotencyKey)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordIdempotencyReplay()
			return NewKind(op, ErrConflict, MsgDuplicatePurchase)
		}
		defer func() {
			if err != nil {
				s.deduper.Unrecord(ctx, key)
			}
		}()
	}

	for attempt := 1; attempt <= s.purchaseAttempts; attempt++ {
		var c repository.PurchaseCommit
		c, err = s.preparePurchase(ctx, op, principal, playerID)
		if err != nil {
			metrics.RecordPurchase(outcome(err))
			return err
		}

		err = s.store.CommitPurchase(ctx, c)
		if errors.Is(err, repository.ErrConditionFailed) {
			metrics.RecordPurchaseConflict()
			s.logger.Debug(ctx, "purchase commit conflicted",
				logger.String("playerId", playerID),
				logger.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			metrics.RecordPurchase("error")
			return s.internal(ctx, op, err)
		}

		metrics.RecordPurchase("success")
		metrics.RecordPurchaseAttempts(attempt)
		metrics.RecordPurchaseVolume(int64(c.Offer.Price))
		s.logger.Info(ctx, "player purchased",
			logger.String("playerId", playerID),
			logger.String("seller", c.Seller.ID),
			logger.String("buyer", c.Buyer.ID),
			logger.String("price", c.Offer.Price.String()),
			logger.String("newValue", c.Player.Value.String()),
		)
		return nil
	}

	metrics.RecordPurchase("error")
	metrics.RecordPurchaseAttempts(s.purchaseAttempts)
	return s.internal(ctx, op, repository.ErrConditionFailed)
}

// preparePurchase reads and validates the current state and computes the
// commit that completes the purchase.
func (s *Service) preparePurchase(ctx context.Context, op, principal, playerID string) (repository.PurchaseCommit, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.PurchaseCommit{}, WrapKind(op, ErrNotFound, MsgPlayerNotFound, err)
	}
	if err != nil {
		return repository.PurchaseCommit{}, s.internal(ctx, op, err)
	}

	seller, err := s.store.GetTeam(ctx, player.TeamID)
	if err != nil {
		s.logger.Error(ctx, "player's team is missing",
			logger.String("playerId", player.ID),
			logger.String("teamId", player.TeamID),
		)
		return repository.PurchaseCommit{}, s.internal(ctx, op, err)
	}
	buyer, err := s.store.GetTeam(ctx, principal)
	if err != nil {
		s.logger.Error(ctx, "buyer's team is missing", logger.String("teamId", principal))
		return repository.PurchaseCommit{}, s.internal(ctx, op, err)
	}

	if seller.ID == buyer.ID {
		return repository.PurchaseCommit{}, NewKind(op, ErrBadRequest, MsgOwnTeam)
	}

	offer, err := s.store.GetOffer(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.PurchaseCommit{}, WrapKind(op, ErrBadRequest, MsgNoOffer, err)
	}
	if err != nil {
		return repository.PurchaseCommit{}, s.internal(ctx, op, err)
	}

	if buyer.Budget < offer.Price {
		return repository.PurchaseCommit{}, NewKind(op, ErrBadRequest, MsgNotEnoughBudget)
	}

	return settle(offer, player, seller, buyer, s.increasePercent()), nil
}

// settle computes the post-purchase state. The seller loses the player's old
// value and the buyer gains the increased one.
func settle(offer model.Offer, player model.Player, seller, buyer model.Team, percent int) repository.PurchaseCommit {
	oldValue := player.Value
	newValue := money.Revalue(oldValue, percent)

	buyer = buyer.Clone()
	buyer.Budget -= offer.Price
	buyer.Value += newValue
	buyer.AddPlayer(player.ID)

	seller = seller.Clone()
	seller.Budget += offer.Price
	seller.Value -= oldValue
	seller.RemovePlayer(player.ID)

	player.TeamID = buyer.ID
	player.Value = newValue

	return repository.PurchaseCommit{Offer: offer, Player: player, Seller: seller, Buyer: buyer}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBadRequest):
		return "rejected"
	default:
		return "error"
	}
}
