package model_test

import (
	"testing"

	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/smartystreets/goconvey/convey"
)

func TestParsePosition(t *testing.T) {
	convey.Convey("Given position names", t, func() {
		for _, in := range []string{"GOALKEEPER", "defender", " Midfielder ", "ATTACKER"} {
			_, ok := model.ParsePosition(in)
			convey.So(ok, convey.ShouldBeTrue)
		}
		p, ok := model.ParsePosition("attacker")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(p, convey.ShouldEqual, model.Attacker)

		for _, in := range []string{"", "STRIKER", "GOAL KEEPER"} {
			_, ok := model.ParsePosition(in)
			convey.So(ok, convey.ShouldBeFalse)
		}
	})
}

func TestTeamRoster(t *testing.T) {
	convey.Convey("Given a team with two players", t, func() {
		team := model.Team{ID: "t1", PlayerIDs: []string{"a", "b"}}

		convey.Convey("When a clone is modified", func() {
			c := team.Clone()
			c.RemovePlayer("a")
			c.AddPlayer("c")

			convey.Convey("Then the original is untouched", func() {
				convey.So(team.PlayerIDs, convey.ShouldResemble, []string{"a", "b"})
				convey.So(c.PlayerIDs, convey.ShouldResemble, []string{"b", "c"})
				convey.So(c.HasPlayer("a"), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a player is added twice", func() {
			team.AddPlayer("b")
			convey.So(team.PlayerIDs, convey.ShouldResemble, []string{"a", "b"})
		})
	})
}

func TestNewOffer(t *testing.T) {
	convey.Convey("Given a player valued 100000.00", t, func() {
		p := model.Player{
			ID:       "p1",
			Country:  "Brazil",
			Position: model.Midfielder,
			Value:    money.MustParse("100000.00"),
		}

		convey.Convey("When listed at 50000.00", func() {
			o, err := model.NewOffer(p, money.MustParse("50000.00"))

			convey.Convey("Then the discount and keys are derived", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(o.ID, convey.ShouldEqual, "p1")
				convey.So(o.Discount, convey.ShouldEqual, money.BasisPoints(5000))
				convey.So(o.CountryPosition, convey.ShouldEqual, "Brazil::MIDFIELDER")
				convey.So(o.SortPartition, convey.ShouldEqual, model.SortPartition)
			})
		})

		convey.Convey("When the player has no value", func() {
			p.Value = 0
			_, err := model.NewOffer(p, 100)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
