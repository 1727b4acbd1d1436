// Package squad builds the starting team and roster handed to a new manager.
package squad

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
)

// Starting amounts for a new team.
var (
	StartingBudget      = money.MustParse("5000000.00")
	StartingPlayerValue = money.MustParse("1000000.00")
)

// Roster lists how many players of each position a new team gets.
var Roster = []struct {
	Position model.Position
	Count    int
}{
	{model.Goalkeeper, 3},
	{model.Defender, 6},
	{model.Midfielder, 6},
	{model.Attacker, 5},
}

const (
	minAge = 18
	maxAge = 40
)

var (
	countries  = []string{"Argentina", "Brazil", "Chile", "England", "France", "Germany", "Italy", "Japan", "Nigeria", "Portugal", "Spain", "Uruguay"}
	teamNames  = []string{"Rovers", "United", "Athletic", "Wanderers", "City", "Rangers", "Albion", "Dynamo", "Sporting", "Olympic"}
	firstNames = []string{"Alex", "Bruno", "Carlos", "Daniel", "Emil", "Felipe", "Gabriel", "Hugo", "Ivan", "Joao", "Kenji", "Luca", "Mateo", "Noah", "Oscar", "Pablo", "Rafael", "Samuel", "Tomas", "Victor"}
	lastNames  = []string{"Almeida", "Bauer", "Costa", "Diaz", "Evans", "Ferreira", "Garcia", "Hansen", "Ito", "Jones", "Keller", "Lopez", "Moreau", "Nakamura", "Okafor", "Pereira", "Rossi", "Silva", "Torres", "Weber"}
)

type config struct {
	rng     *rand.Rand
	country string
	name    string
}

// Option customises Generate.
type Option func(*config)

// WithRand sets the random source.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithCountry fixes the team country.
func WithCountry(country string) Option {
	return func(c *config) { c.country = country }
}

// WithName fixes the team name.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// Generate builds a team owned by teamID and its 20 players. Players share
// the team country and start with the same value; the team value is their sum.
func Generate(teamID string, opts ...Option) (model.Team, []model.Player) {
	cfg := config{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := cfg.rng
	if cfg.country == "" {
		cfg.country = pick(r, countries)
	}
	if cfg.name == "" {
		cfg.name = cfg.country + " " + pick(r, teamNames)
	}

	team := model.Team{
		ID:      teamID,
		Name:    cfg.name,
		Country: cfg.country,
		Budget:  StartingBudget,
	}
	var players []model.Player
	for _, slot := range Roster {
		for i := 0; i < slot.Count; i++ {
			p := model.Player{
				ID:        uuid.NewString(),
				TeamID:    teamID,
				FirstName: pick(r, firstNames),
				LastName:  pick(r, lastNames),
				Country:   cfg.country,
				Position:  slot.Position,
				Age:       minAge + r.IntN(maxAge-minAge+1),
				Value:     StartingPlayerValue,
			}
			players = append(players, p)
			team.PlayerIDs = append(team.PlayerIDs, p.ID)
			team.Value += p.Value
		}
	}
	return team, players
}

func pick(r *rand.Rand, from []string) string {
	return from[r.IntN(len(from))]
}
