// Package model contains domain models passed between layers.
package model

import "strings"

// Position is the field position of a player.
type Position string

const (
	Goalkeeper Position = "GOALKEEPER"
	Defender   Position = "DEFENDER"
	Midfielder Position = "MIDFIELDER"
	Attacker   Position = "ATTACKER"
)

// Positions lists every valid position.
var Positions = []Position{Goalkeeper, Defender, Midfielder, Attacker}

// ParsePosition resolves a position name, ignoring case and surrounding space.
func ParsePosition(s string) (Position, bool) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range Positions {
		if p == v {
			return p, true
		}
	}
	return "", false
}

func (p Position) String() string { return string(p) }
