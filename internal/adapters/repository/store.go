// Package repository defines the marketplace store interface and its
// in-memory implementation.
package repository

import (
	"context"
	"math"

	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/search"
)

// PurchaseCommit is the complete effect of one purchase. Player, Seller and
// Buyer hold the new state and carry the version that was read; the store
// writes them with the version incremented.
type PurchaseCommit struct {
	Offer  model.Offer
	Player model.Player
	Seller model.Team
	Buyer  model.Team
}

// Stats reports record counts.
type Stats struct {
	Players int `json:"players"`
	Teams   int `json:"teams"`
	Offers  int `json:"offers"`
}

// Store provides access to players, teams and offers.
type Store interface {
	// GetPlayer, GetTeam and GetOffer return ErrNotFound when absent.
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	GetTeam(ctx context.Context, id string) (model.Team, error)
	GetOffer(ctx context.Context, id string) (model.Offer, error)

	// BatchGetPlayers and BatchGetOffers skip missing ids. Result order is unspecified.
	BatchGetPlayers(ctx context.Context, ids []string) ([]model.Player, error)
	BatchGetOffers(ctx context.Context, ids []string) ([]model.Offer, error)

	PutPlayer(ctx context.Context, p model.Player) error
	PutTeam(ctx context.Context, t model.Team) error

	// PutOfferIfAbsent returns ErrAlreadyExists if an offer with the same id exists.
	PutOfferIfAbsent(ctx context.Context, o model.Offer) error
	DeleteOffer(ctx context.Context, id string) error

	// QueryOffers scans one index partition and returns key-only rows.
	QueryOffers(ctx context.Context, q search.IndexQuery) (search.Page, error)

	// CommitPurchase applies c atomically. It returns ErrConditionFailed,
	// writing nothing, unless the offer still exists at the same price and
	// the player and both teams still have the versions that were read.
	CommitPurchase(ctx context.Context, c PurchaseCommit) error

	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// FetchLimit is the number of rows to read to learn whether a page has a successor.
func FetchLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit == math.MaxInt {
		return limit
	}
	return limit + 1
}

// PageOf trims rows read with FetchLimit to a page and sets the next cursor.
func PageOf(q search.IndexQuery, rows []search.Row) search.Page {
	if len(rows) <= q.Limit {
		return search.Page{Rows: rows}
	}
	rows = rows[:q.Limit]
	return search.Page{Rows: rows, Next: search.NewCursor(q.Index, rows[len(rows)-1])}
}
