package squad_test

import (
	"math/rand/v2"
	"testing"

	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/okian/squadmarket/internal/domain/squad"
	"github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	convey.Convey("Given a generated squad", t, func() {
		team, players := squad.Generate("manager@example.com",
			squad.WithRand(rand.New(rand.NewPCG(1, 2))), squad.WithCountry("Chile"))

		convey.Convey("Then the team starts with the standard budget and value", func() {
			convey.So(team.ID, convey.ShouldEqual, "manager@example.com")
			convey.So(team.Country, convey.ShouldEqual, "Chile")
			convey.So(team.Budget, convey.ShouldEqual, money.MustParse("5000000.00"))
			convey.So(team.Value, convey.ShouldEqual, money.MustParse("20000000.00"))
			convey.So(team.Name, convey.ShouldStartWith, "Chile ")
		})

		convey.Convey("Then the roster has 20 players in the standard shape", func() {
			convey.So(len(players), convey.ShouldEqual, 20)
			convey.So(len(team.PlayerIDs), convey.ShouldEqual, 20)

			count := map[model.Position]int{}
			ids := map[string]bool{}
			for _, p := range players {
				count[p.Position]++
				ids[p.ID] = true
				convey.So(p.TeamID, convey.ShouldEqual, team.ID)
				convey.So(p.Country, convey.ShouldEqual, "Chile")
				convey.So(p.Value, convey.ShouldEqual, squad.StartingPlayerValue)
				convey.So(p.Age, convey.ShouldBeBetweenOrEqual, 18, 40)
				convey.So(team.HasPlayer(p.ID), convey.ShouldBeTrue)
			}
			convey.So(len(ids), convey.ShouldEqual, 20)
			convey.So(count[model.Goalkeeper], convey.ShouldEqual, 3)
			convey.So(count[model.Defender], convey.ShouldEqual, 6)
			convey.So(count[model.Midfielder], convey.ShouldEqual, 6)
			convey.So(count[model.Attacker], convey.ShouldEqual, 5)
		})
	})
}
