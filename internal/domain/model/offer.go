package model

import "github.com/okian/squadmarket/internal/domain/money"

// SortPartition is the constant partition value shared by every offer so
// unfiltered searches can scan a single ordered partition.
const SortPartition = 1

// Offer is an active listing. ID equals the listed player's ID.
// Price and Discount are fixed at creation.
type Offer struct {
	ID              string
	Price           money.Cents
	Discount        money.BasisPoints
	Country         string
	Position        Position
	CountryPosition string
	SortPartition   int
}

// CountryPositionKey joins country and position into a combined partition value.
func CountryPositionKey(country string, position Position) string {
	return country + "::" + string(position)
}

// NewOffer prices a listing for player and fills the denormalized keys.
func NewOffer(player Player, price money.Cents) (Offer, error) {
	discount, err := money.Discount(price, player.Value)
	if err != nil {
		return Offer{}, err
	}
	return Offer{
		ID:              player.ID,
		Price:           price,
		Discount:        discount,
		Country:         player.Country,
		Position:        player.Position,
		CountryPosition: CountryPositionKey(player.Country, player.Position),
		SortPartition:   SortPartition,
	}, nil
}
