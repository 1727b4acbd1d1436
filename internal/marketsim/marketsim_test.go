package marketsim

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/squadmarket/internal/adapters/http/api"
	app "github.com/okian/squadmarket/internal/app"
	"github.com/okian/squadmarket/internal/domain/types"
	"github.com/okian/squadmarket/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const testSecret = "marketsim-test-secret"

func newTestServer(t *testing.T, teams int) *httptest.Server {
	t.Helper()
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		t.Fatalf("logger init: %v", err)
	}
	ctx := context.Background()
	svc := app.New(app.WithLogger(logger.Get()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)

	cfg := &Config{Teams: teams}
	if _, err := svc.SeedTeams(ctx, cfg.TeamIDs()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	auth := api.NewAuthenticator(api.AuthConfig{HMACSecret: testSecret}, logger.Get())
	srv := httptest.NewServer(api.NewServer(svc, svc, auth, api.WithTracing(false)).Handler(ctx))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a seeded market server", t, func() {
		srv := newTestServer(t, 3)
		cfg := &Config{
			BaseURL:  srv.URL,
			Secret:   testSecret,
			Teams:    3,
			Listings: 4,
			Buyers:   2,
			Workers:  4,
			PageSize: 3,
			Timeout:  5 * time.Second,
		}

		Convey("When a full simulation runs", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every check passes and purchases settle", func() {
				So(err, ShouldBeNil)
				So(stats.OffersCreated, ShouldEqual, 12)
				So(stats.OffersFailed, ShouldEqual, 0)
				So(stats.SearchQueries, ShouldEqual, 16)
				So(stats.PurchaseAttempts, ShouldEqual, 24)
				So(stats.Purchases, ShouldBeGreaterThan, 0)
				So(stats.Purchases, ShouldBeLessThanOrEqualTo, 12)
				So(stats.Purchases+stats.PurchasesRejected+stats.PurchasesFailed, ShouldEqual, 24)
			})
		})

		Convey("When the secret does not match the server", func() {
			cfg.Secret = "wrong"
			_, err := Run(context.Background(), cfg)

			Convey("Then the team snapshot is unauthorized", func() {
				So(err, ShouldNotBeNil)
				var apiErr *APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})

	Convey("Given an invalid configuration", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://localhost", Secret: "s", Teams: 1, Listings: 1, Workers: 1, PageSize: 1})
		So(err, ShouldNotBeNil)
	})
}

func TestPurchaseJobs(t *testing.T) {
	Convey("Given three teams with one listing each", t, func() {
		cfg := &Config{Teams: 3, Buyers: 5}
		listings := []Listing{
			{PlayerID: "a", Seller: "team-001"},
			{PlayerID: "b", Seller: "team-002"},
			{PlayerID: "c", Seller: "team-003"},
		}
		jobs := purchaseJobs(cfg, listings)

		Convey("Then every other team bids once and nobody bids on its own player", func() {
			So(len(jobs), ShouldEqual, 6)
			seller := map[string]string{"a": "team-001", "b": "team-002", "c": "team-003"}
			for _, j := range jobs {
				So(j.buyer, ShouldNotEqual, seller[j.playerID])
			}
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Purchase errors map onto outcomes", t, func() {
		So(classify(nil), ShouldEqual, outcomeBought)
		So(classify(&APIError{Status: http.StatusBadRequest}), ShouldEqual, outcomeRejected)
		So(classify(&APIError{Status: http.StatusConflict}), ShouldEqual, outcomeRejected)
		So(classify(&APIError{Status: http.StatusInternalServerError}), ShouldEqual, outcomeFailed)
		So(classify(errors.New("connection refused")), ShouldEqual, outcomeFailed)
	})
}

func TestVerifyOrder(t *testing.T) {
	Convey("Given offers sorted by price then id", t, func() {
		offers := []types.Offer{
			{ID: "a", Price: 100, Discount: 10},
			{ID: "b", Price: 100, Discount: 30},
			{ID: "c", Price: 200, Discount: 20},
		}
		So(verifyOrder(offers, "price", "ASC"), ShouldBeNil)
		So(verifyOrder(offers, "price", "DESC"), ShouldNotBeNil)
		So(verifyOrder(offers, "discount", "ASC"), ShouldNotBeNil)

		reversed := []types.Offer{offers[2], offers[1], offers[0]}
		So(verifyOrder(reversed, "price", "DESC"), ShouldBeNil)

		dup := []types.Offer{offers[0], offers[0]}
		So(verifyOrder(dup, "price", "ASC"), ShouldNotBeNil)
	})
}

func TestVerifyFilterAndCount(t *testing.T) {
	Convey("Given listings from two countries", t, func() {
		listings := []Listing{
			{PlayerID: "a", Country: "Peru", Position: "ATTACKER"},
			{PlayerID: "b", Country: "Peru", Position: "DEFENDER"},
			{PlayerID: "c", Country: "Chile", Position: "ATTACKER"},
		}
		So(expectedCount(listings, "", ""), ShouldEqual, 3)
		So(expectedCount(listings, "Peru", ""), ShouldEqual, 2)
		So(expectedCount(listings, "", "attacker"), ShouldEqual, 2)
		So(expectedCount(listings, "Chile", "DEFENDER"), ShouldEqual, 0)

		offers := []types.Offer{{ID: "a", Player: types.Player{Country: "Peru", Position: "ATTACKER"}}}
		So(verifyFilter(offers, "Peru", "ATTACKER"), ShouldBeNil)
		So(verifyFilter(offers, "Chile", ""), ShouldNotBeNil)
		So(verifyFilter(offers, "", "DEFENDER"), ShouldNotBeNil)
	})
}

func TestVerifyTeams(t *testing.T) {
	Convey("Given a transfer of p1 from t1 to t2 for 100.00", t, func() {
		before := map[string]types.Team{
			"t1": {ID: "t1", Budget: 50000, Players: []types.Player{{ID: "p1"}, {ID: "p2"}}},
			"t2": {ID: "t2", Budget: 50000, Players: []types.Player{{ID: "p3"}}},
		}
		after := map[string]types.Team{
			"t1": {ID: "t1", Budget: 60000, Players: []types.Player{{ID: "p2"}}},
			"t2": {ID: "t2", Budget: 40000, Players: []types.Player{{ID: "p3"}, {ID: "p1"}}},
		}
		winners := map[string]string{"p1": "t2"}

		Convey("Then conservation and rosters hold", func() {
			So(verifyConservation(before, after), ShouldBeNil)
			So(verifyRosters(before, after, winners), ShouldBeNil)
		})

		Convey("Then a leaked budget is caught", func() {
			t2 := after["t2"]
			t2.Budget = 45000
			after["t2"] = t2
			So(verifyConservation(before, after), ShouldNotBeNil)
		})

		Convey("Then a player on two rosters is caught", func() {
			t1 := after["t1"]
			t1.Players = append(t1.Players, types.Player{ID: "p1"})
			after["t1"] = t1
			So(verifyRosters(before, after, winners), ShouldNotBeNil)
		})

		Convey("Then a winner missing from its buyer is caught", func() {
			So(verifyRosters(before, after, map[string]string{"p1": "t1"}), ShouldNotBeNil)
		})
	})

	Convey("Given two successful purchases of one player", t, func() {
		_, err := winnersOf([]purchaseResult{
			{purchaseJob: purchaseJob{buyer: "t1", playerID: "p"}, outcome: outcomeBought},
			{purchaseJob: purchaseJob{buyer: "t2", playerID: "p"}, outcome: outcomeBought},
		})
		So(err, ShouldNotBeNil)
	})
}
