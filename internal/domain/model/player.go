package model

import "github.com/okian/squadmarket/internal/domain/money"

// Player is a squad member owned by exactly one team.
type Player struct {
	ID        string
	TeamID    string
	FirstName string
	LastName  string
	Country   string
	Position  Position
	Age       int
	Value     money.Cents
	// Version increments on every committed write.
	Version int64
}
