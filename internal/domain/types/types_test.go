package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/squadmarket/internal/domain/model"
	types "github.com/okian/squadmarket/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOfferJSON(t *testing.T) {
	Convey("Given an offer joined with its player", t, func() {
		p := model.Player{
			ID: "p1", TeamID: "hidden", FirstName: "Ana", LastName: "Lima",
			Country: "Brazil", Age: 23, Value: 100000000, Position: model.Attacker,
		}
		o := model.Offer{ID: "p1", Price: 75000000, Discount: 2500}

		Convey("When it is rendered as JSON", func() {
			b, err := json.Marshal(types.OfferOf(o, p))

			Convey("Then amounts are 2-decimal strings and the team is not exposed", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual,
					`{"id":"p1","price":"750000.00","discount":"25.00","player":{"id":"p1","firstName":"Ana","lastName":"Lima","country":"Brazil","age":23,"value":"1000000.00","position":"ATTACKER"}}`)
			})
		})
	})
}

func TestSearchResultJSON(t *testing.T) {
	Convey("Given an empty result page", t, func() {
		b, err := json.Marshal(types.SearchResult{Offers: []types.Offer{}})

		Convey("Then the offers list is present and the cursor is omitted", func() {
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"offers":[]}`)
		})
	})

	Convey("Given a page with a continuation cursor", t, func() {
		b, _ := json.Marshal(types.SearchResult{Offers: []types.Offer{}, NextCursor: "abc"})
		So(string(b), ShouldEqual, `{"offers":[],"nextCursor":"abc"}`)
	})
}

func TestTeamJSON(t *testing.T) {
	Convey("Given a team view", t, func() {
		b, err := json.Marshal(types.Team{ID: "t1", Name: "Alpha", Country: "Peru", Value: 2000000000, Budget: 500000000, Players: []types.Player{}})
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, `{"id":"t1","name":"Alpha","country":"Peru","value":"20000000.00","budget":"5000000.00","players":[]}`)
	})
}
