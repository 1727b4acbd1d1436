package model

import (
	"slices"

	"github.com/okian/squadmarket/internal/domain/money"
)

// Team is the aggregate owned by a principal. ID equals the principal.
type Team struct {
	ID        string
	Name      string
	Country   string
	Budget    money.Cents
	Value     money.Cents
	PlayerIDs []string
	// Version increments on every committed write.
	Version int64
}

// Clone returns a deep copy.
func (t Team) Clone() Team {
	t.PlayerIDs = slices.Clone(t.PlayerIDs)
	return t
}

// HasPlayer reports whether id is on the roster.
func (t Team) HasPlayer(id string) bool {
	return slices.Contains(t.PlayerIDs, id)
}

// AddPlayer appends id to the roster if missing.
func (t *Team) AddPlayer(id string) {
	if !t.HasPlayer(id) {
		t.PlayerIDs = append(t.PlayerIDs, id)
	}
}

// RemovePlayer drops id from the roster.
func (t *Team) RemovePlayer(id string) {
	t.PlayerIDs = slices.DeleteFunc(t.PlayerIDs, func(s string) bool { return s == id })
}
