// Package types contains the response shapes returned across the API boundary.
package types

import (
	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
)

// Player is the public view of a player.
type Player struct {
	ID        string         `json:"id"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Country   string         `json:"country"`
	Age       int            `json:"age"`
	Value     money.Cents    `json:"value"`
	Position  model.Position `json:"position"`
}

// Offer is a listing joined with its player.
type Offer struct {
	ID       string            `json:"id"`
	Price    money.Cents       `json:"price"`
	Discount money.BasisPoints `json:"discount"`
	Player   Player            `json:"player"`
}

// SearchResult is one page of offers.
type SearchResult struct {
	Offers     []Offer `json:"offers"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// Team is a team with its roster.
type Team struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Country string      `json:"country"`
	Value   money.Cents `json:"value"`
	Budget  money.Cents `json:"budget"`
	Players []Player    `json:"players"`
}

// PlayerOf converts a player model.
func PlayerOf(p model.Player) Player {
	return Player{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Country:   p.Country,
		Age:       p.Age,
		Value:     p.Value,
		Position:  p.Position,
	}
}

// OfferOf joins an offer with its player.
func OfferOf(o model.Offer, p model.Player) Offer {
	return Offer{ID: o.ID, Price: o.Price, Discount: o.Discount, Player: PlayerOf(p)}
}
