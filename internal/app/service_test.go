package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/squadmarket/internal/adapters/repository"
	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/okian/squadmarket/internal/domain/search"
	"github.com/okian/squadmarket/internal/domain/squad"
	"github.com/okian/squadmarket/pkg/logger"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *repository.MemoryStore) {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}
	ctx := context.Background()
	store := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(50*time.Millisecond))
	opts = append([]Option{WithStore(store), WithLogger(logger.Get())}, opts...)
	s := New(opts...)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, store
}

// putTeam stores a team owning one player per given value.
func putTeam(t *testing.T, store repository.Store, id, country string, budget string, values ...string) []model.Player {
	t.Helper()
	ctx := context.Background()
	team := model.Team{ID: id, Name: id, Country: country, Budget: money.MustParse(budget)}
	var players []model.Player
	for i, v := range values {
		p := model.Player{
			ID:        fmt.Sprintf("%s-p%d", id, i),
			TeamID:    id,
			FirstName: "First",
			LastName:  "Last",
			Country:   country,
			Position:  model.Positions[i%len(model.Positions)],
			Age:       25,
			Value:     money.MustParse(v),
		}
		if err := store.PutPlayer(ctx, p); err != nil {
			t.Fatalf("put player: %v", err)
		}
		team.PlayerIDs = append(team.PlayerIDs, p.ID)
		team.Value += p.Value
		players = append(players, p)
	}
	if err := store.PutTeam(ctx, team); err != nil {
		t.Fatalf("put team: %v", err)
	}
	return players
}

func TestCreateOffer(t *testing.T) {
	convey.Convey("Given a team with one player worth 100000.00", t, func() {
		s, store := newTestService(t)
		ctx := context.Background()
		players := putTeam(t, store, "alice", "Brazil", "5000000.00", "100000.00")
		putTeam(t, store, "bob", "Chile", "5000000.00", "1000.00")
		playerID := players[0].ID

		convey.Convey("When listing it for 50000.00", func() {
			err := s.CreateOffer(ctx, "alice", CreateOfferRequest{PlayerID: playerID, Price: "50000.00"})

			convey.Convey("Then the offer carries a 50.00% discount and the price in cents", func() {
				convey.So(err, convey.ShouldBeNil)
				o, err := store.GetOffer(ctx, playerID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(o.Price, convey.ShouldEqual, money.Cents(5_000_000))
				convey.So(o.Discount, convey.ShouldEqual, money.BasisPoints(5000))
				convey.So(o.Country, convey.ShouldEqual, "Brazil")
				convey.So(o.CountryPosition, convey.ShouldEqual, model.CountryPositionKey("Brazil", players[0].Position))
				convey.So(o.SortPartition, convey.ShouldEqual, model.SortPartition)
			})

			convey.Convey("Then the player and team are untouched", func() {
				p, _ := store.GetPlayer(ctx, playerID)
				convey.So(p, convey.ShouldResemble, players[0])
			})

			convey.Convey("Then listing it again is rejected", func() {
				err := s.CreateOffer(ctx, "alice", CreateOfferRequest{PlayerID: playerID, Price: "1.00"})
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgOfferExists)
			})
		})

		convey.Convey("When the request is malformed", func() {
			cases := []struct {
				req CreateOfferRequest
				msg string
			}{
				{CreateOfferRequest{Price: "1.00"}, MsgPlayerIDEmpty},
				{CreateOfferRequest{PlayerID: playerID}, MsgPriceEmpty},
				{CreateOfferRequest{PlayerID: playerID, Price: "1.001"}, MsgPriceInvalid},
				{CreateOfferRequest{PlayerID: playerID, Price: "abc"}, MsgPriceInvalid},
				{CreateOfferRequest{PlayerID: playerID, Price: "0"}, MsgPriceInvalid},
				{CreateOfferRequest{PlayerID: playerID, Price: "-5.00"}, MsgPriceInvalid},
			}
			convey.Convey("Then each is a bad request with its own message", func() {
				for _, c := range cases {
					err := s.CreateOffer(ctx, "alice", c.req)
					convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
					convey.So(Message(err), convey.ShouldEqual, c.msg)
				}
			})
		})

		convey.Convey("When the player does not exist", func() {
			err := s.CreateOffer(ctx, "alice", CreateOfferRequest{PlayerID: "ghost", Price: "1.00"})
			convey.Convey("Then it is not found", func() {
				convey.So(errors.Is(err, ErrNotFound), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgPlayerNotExist)
			})
		})

		convey.Convey("When another team lists the player", func() {
			err := s.CreateOffer(ctx, "bob", CreateOfferRequest{PlayerID: playerID, Price: "1.00"})
			convey.Convey("Then it is forbidden and nothing is written", func() {
				convey.So(errors.Is(err, ErrForbidden), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgPlayerNotOwned)
				_, err := store.GetOffer(ctx, playerID)
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the price exceeds the value", func() {
			err := s.CreateOffer(ctx, "alice", CreateOfferRequest{PlayerID: playerID, Price: "150000.00"})
			convey.Convey("Then the discount is negative", func() {
				convey.So(err, convey.ShouldBeNil)
				o, _ := store.GetOffer(ctx, playerID)
				convey.So(o.Discount, convey.ShouldEqual, money.BasisPoints(-5000))
			})
		})
	})
}

func TestPurchasePlayer(t *testing.T) {
	convey.Convey("Given a listed player and two teams with 5000000.00 each", t, func() {
		s, store := newTestService(t, WithIncreasePercent(func() int { return 10 }))
		ctx := context.Background()
		sellerPlayers := putTeam(t, store, "seller", "Spain", "5000000.00", "1000000.00", "1000000.00")
		putTeam(t, store, "buyer", "Italy", "5000000.00", "1000000.00")
		playerID := sellerPlayers[0].ID
		convey.So(s.CreateOffer(ctx, "seller", CreateOfferRequest{PlayerID: playerID, Price: "1500000.00"}), convey.ShouldBeNil)

		convey.Convey("When the buyer purchases it", func() {
			err := s.PurchasePlayer(ctx, "buyer", PurchaseRequest{PlayerID: playerID})

			convey.Convey("Then money, values and rosters move together", func() {
				convey.So(err, convey.ShouldBeNil)

				seller, _ := store.GetTeam(ctx, "seller")
				buyer, _ := store.GetTeam(ctx, "buyer")
				player, _ := store.GetPlayer(ctx, playerID)

				convey.So(seller.Budget, convey.ShouldEqual, money.MustParse("6500000.00"))
				convey.So(buyer.Budget, convey.ShouldEqual, money.MustParse("3500000.00"))
				convey.So(player.TeamID, convey.ShouldEqual, "buyer")
				convey.So(player.Value, convey.ShouldEqual, money.MustParse("1100000.00"))
				convey.So(seller.Value, convey.ShouldEqual, money.MustParse("1000000.00"))
				convey.So(buyer.Value, convey.ShouldEqual, money.MustParse("2100000.00"))
				convey.So(seller.HasPlayer(playerID), convey.ShouldBeFalse)
				convey.So(buyer.HasPlayer(playerID), convey.ShouldBeTrue)

				_, err := store.GetOffer(ctx, playerID)
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})

			convey.Convey("Then buying it again finds no offer", func() {
				err := s.PurchasePlayer(ctx, "seller", PurchaseRequest{PlayerID: playerID})
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgNoOffer)
			})
		})

		convey.Convey("When the seller tries to buy its own player", func() {
			before, _ := store.Stats(ctx)
			err := s.PurchasePlayer(ctx, "seller", PurchaseRequest{PlayerID: playerID})
			convey.Convey("Then it is rejected and nothing changes", func() {
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgOwnTeam)
				after, _ := store.Stats(ctx)
				convey.So(after, convey.ShouldResemble, before)
				seller, _ := store.GetTeam(ctx, "seller")
				convey.So(seller.Budget, convey.ShouldEqual, money.MustParse("5000000.00"))
			})
		})

		convey.Convey("When the player is not listed", func() {
			err := s.PurchasePlayer(ctx, "buyer", PurchaseRequest{PlayerID: sellerPlayers[1].ID})
			convey.Convey("Then there is no offer", func() {
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgNoOffer)
			})
		})

		convey.Convey("When the player does not exist", func() {
			err := s.PurchasePlayer(ctx, "buyer", PurchaseRequest{PlayerID: "ghost"})
			convey.Convey("Then it is not found", func() {
				convey.So(errors.Is(err, ErrNotFound), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgPlayerNotFound)
			})
		})

		convey.Convey("When the player id is empty", func() {
			err := s.PurchasePlayer(ctx, "buyer", PurchaseRequest{})
			convey.Convey("Then it is a bad request", func() {
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the buyer cannot afford it", func() {
			putTeam(t, store, "poor", "Chile", "1499999.99")
			err := s.PurchasePlayer(ctx, "poor", PurchaseRequest{PlayerID: playerID})
			convey.Convey("Then the budget check fails", func() {
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgNotEnoughBudget)
			})
		})

		convey.Convey("When the buyer has no team", func() {
			err := s.PurchasePlayer(ctx, "nobody", PurchaseRequest{PlayerID: playerID})
			convey.Convey("Then it is an internal failure", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(IsInternal(err), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, InternalMessage)
			})
		})

		convey.Convey("When a request is replayed with the same idempotency key", func() {
			req := PurchaseRequest{PlayerID: playerID, IdempotencyKey: "k1"}
			first := s.PurchasePlayer(ctx, "buyer", req)
			second := s.PurchasePlayer(ctx, "buyer", req)
			convey.Convey("Then only the first one runs", func() {
				convey.So(first, convey.ShouldBeNil)
				convey.So(errors.Is(second, ErrConflict), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a keyed request fails", func() {
			putTeam(t, store, "poor", "Chile", "1.00")
			req := PurchaseRequest{PlayerID: playerID, IdempotencyKey: "k2"}
			first := s.PurchasePlayer(ctx, "poor", req)
			second := s.PurchasePlayer(ctx, "poor", req)
			convey.Convey("Then the key is released for a retry", func() {
				convey.So(Message(first), convey.ShouldEqual, MsgNotEnoughBudget)
				convey.So(Message(second), convey.ShouldEqual, MsgNotEnoughBudget)
			})
		})
	})
}

func TestPurchaseRevalueBounds(t *testing.T) {
	convey.Convey("Given the default random increase", t, func() {
		s, store := newTestService(t)
		ctx := context.Background()
		putTeam(t, store, "buyer", "Italy", "100000000.00")
		players := putTeam(t, store, "seller", "Spain", "0.00",
			"1000000.00", "1234.57", "0.05", "999.99", "1.00")

		convey.Convey("When every player is bought", func() {
			for _, p := range players {
				convey.So(s.CreateOffer(ctx, "seller", CreateOfferRequest{PlayerID: p.ID, Price: "1.00"}), convey.ShouldBeNil)
				convey.So(s.PurchasePlayer(ctx, "buyer", PurchaseRequest{PlayerID: p.ID}), convey.ShouldBeNil)
			}

			convey.Convey("Then each new value lies between +10% and +100%", func() {
				for _, p := range players {
					got, _ := store.GetPlayer(ctx, p.ID)
					convey.So(got.Value, convey.ShouldBeGreaterThanOrEqualTo, money.Revalue(p.Value, 10))
					convey.So(got.Value, convey.ShouldBeLessThanOrEqualTo, money.Revalue(p.Value, 100))
				}
			})
		})
	})
}

func TestConcurrentPurchases(t *testing.T) {
	convey.Convey("Given one listed player and many buyers", t, func() {
		s, store := newTestService(t)
		ctx := context.Background()
		players := putTeam(t, store, "seller", "Spain", "0.00", "1000.00")
		const buyers = 16
		for i := 0; i < buyers; i++ {
			putTeam(t, store, fmt.Sprintf("buyer-%02d", i), "Italy", "5000.00")
		}
		convey.So(s.CreateOffer(ctx, "seller", CreateOfferRequest{PlayerID: players[0].ID, Price: "2500.00"}), convey.ShouldBeNil)

		convey.Convey("When all of them buy at once", func() {
			var wg sync.WaitGroup
			errs := make([]error, buyers)
			for i := 0; i < buyers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = s.PurchasePlayer(ctx, fmt.Sprintf("buyer-%02d", i), PurchaseRequest{PlayerID: players[0].ID})
				}(i)
			}
			wg.Wait()

			convey.Convey("Then exactly one wins and money is conserved", func() {
				wins := 0
				for _, err := range errs {
					if err == nil {
						wins++
					}
				}
				convey.So(wins, convey.ShouldEqual, 1)

				total := money.Cents(0)
				owners := 0
				for _, id := range append([]string{"seller"}, buyerIDs(buyers)...) {
					team, err := store.GetTeam(ctx, id)
					convey.So(err, convey.ShouldBeNil)
					total += team.Budget
					if team.HasPlayer(players[0].ID) {
						owners++
					}
				}
				convey.So(total, convey.ShouldEqual, money.MustParse("80000.00"))
				convey.So(owners, convey.ShouldEqual, 1)
			})
		})
	})
}

func buyerIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("buyer-%02d", i)
	}
	return out
}

func TestSearchOffers(t *testing.T) {
	convey.Convey("Given listings across countries and positions", t, func() {
		s, store := newTestService(t, WithDefaultPageSize(3))
		ctx := context.Background()
		br := putTeam(t, store, "br", "Brazil", "0.00", "100.00", "100.00", "100.00", "100.00", "100.00")
		it := putTeam(t, store, "it", "Italy", "0.00", "100.00", "100.00", "100.00")
		prices := []string{"10.00", "90.00", "50.00", "30.00", "70.00"}
		for i, p := range br {
			convey.So(s.CreateOffer(ctx, "br", CreateOfferRequest{PlayerID: p.ID, Price: prices[i]}), convey.ShouldBeNil)
		}
		for i, p := range it {
			convey.So(s.CreateOffer(ctx, "it", CreateOfferRequest{PlayerID: p.ID, Price: prices[i]}), convey.ShouldBeNil)
		}

		convey.Convey("When paging through all offers by price", func() {
			var got []money.Cents
			cursor := ""
			pages := 0
			for {
				res, err := s.SearchOffers(ctx, search.Params{Cursor: cursor})
				convey.So(err, convey.ShouldBeNil)
				for _, o := range res.Offers {
					got = append(got, o.Price)
				}
				pages++
				if res.NextCursor == "" {
					break
				}
				cursor = res.NextCursor
			}

			convey.Convey("Then every offer is returned once in ascending order", func() {
				convey.So(len(got), convey.ShouldEqual, 8)
				convey.So(pages, convey.ShouldEqual, 3)
				for i := 1; i < len(got); i++ {
					convey.So(got[i-1], convey.ShouldBeLessThanOrEqualTo, got[i])
				}
			})
		})

		convey.Convey("When filtering by country and sorting by discount", func() {
			res, err := s.SearchOffers(ctx, search.Params{Country: "Brazil", OrderBy: "discount", PageSize: "10"})

			convey.Convey("Then only that country is returned, biggest discount first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(res.Offers), convey.ShouldEqual, 5)
				convey.So(res.NextCursor, convey.ShouldEqual, "")
				convey.So(res.Offers[0].Price, convey.ShouldEqual, money.MustParse("10.00"))
				convey.So(res.Offers[0].Discount, convey.ShouldEqual, money.BasisPoints(9000))
				for _, o := range res.Offers {
					convey.So(o.Player.Country, convey.ShouldEqual, "Brazil")
				}
			})
		})

		convey.Convey("When filtering by country and position", func() {
			pos := br[0].Position
			res, err := s.SearchOffers(ctx, search.Params{Country: "Brazil", Position: string(pos)})
			convey.Convey("Then both filters apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(res.Offers), convey.ShouldBeGreaterThan, 0)
				for _, o := range res.Offers {
					convey.So(o.Player.Country, convey.ShouldEqual, "Brazil")
					convey.So(o.Player.Position, convey.ShouldEqual, pos)
				}
			})
		})

		convey.Convey("When the query is invalid", func() {
			_, errPos := s.SearchOffers(ctx, search.Params{Position: "STRIKER"})
			_, errCur := s.SearchOffers(ctx, search.Params{Cursor: "not-a-cursor"})
			_, errSize := s.SearchOffers(ctx, search.Params{PageSize: "0"})

			convey.Convey("Then it is a bad request", func() {
				convey.So(errors.Is(errPos, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(errors.Is(errCur, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(Message(errCur), convey.ShouldEqual, MsgInvalidCursor)
				convey.So(errors.Is(errSize, ErrBadRequest), convey.ShouldBeTrue)
			})

			convey.Convey("Then the message names the field without the error kind", func() {
				convey.So(Message(errPos), convey.ShouldEqual, MsgInvalidPosition)
				convey.So(Message(errSize), convey.ShouldEqual, MsgInvalidPageSize)
				convey.So(Message(errPos), convey.ShouldNotContainSubstring, search.ErrInvalidQuery.Error())
			})
		})

		convey.Convey("When the sort is invalid", func() {
			_, errOrder := s.SearchOffers(ctx, search.Params{OrderBy: "age"})
			_, errDir := s.SearchOffers(ctx, search.Params{OrderDirection: "UP"})

			convey.Convey("Then each field has its own message", func() {
				convey.So(Message(errOrder), convey.ShouldEqual, MsgInvalidOrderBy)
				convey.So(Message(errDir), convey.ShouldEqual, MsgInvalidDirection)
			})
		})

		convey.Convey("When a cursor is reused with another filter", func() {
			res, err := s.SearchOffers(ctx, search.Params{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.NextCursor, convey.ShouldNotEqual, "")
			_, err = s.SearchOffers(ctx, search.Params{Country: "Italy", Cursor: res.NextCursor})

			convey.Convey("Then the cursor is rejected", func() {
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
			})
		})
	})
}

func TestGetTeamAndSeed(t *testing.T) {
	convey.Convey("Given seeded teams", t, func() {
		s, _ := newTestService(t)
		ctx := context.Background()
		created, err := s.SeedTeams(ctx, []string{"team-001", "team-002"}, squad.WithCountry("Japan"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(created, convey.ShouldEqual, 2)

		convey.Convey("When seeding the same ids again", func() {
			again, err := s.SeedTeams(ctx, []string{"team-001", "team-002", ""})
			convey.Convey("Then nothing is created", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When reading a team", func() {
			team, err := s.GetTeam(ctx, "team-001")

			convey.Convey("Then it has the starting budget and roster", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(team.Budget, convey.ShouldEqual, squad.StartingBudget)
				convey.So(team.Country, convey.ShouldEqual, "Japan")
				convey.So(len(team.Players), convey.ShouldEqual, 20)
				convey.So(team.Value, convey.ShouldEqual, squad.StartingPlayerValue*20)
				for i := 1; i < len(team.Players); i++ {
					convey.So(team.Players[i-1].ID < team.Players[i].ID, convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When reading a missing team", func() {
			_, err := s.GetTeam(ctx, "nobody")
			convey.Convey("Then it is not found", func() {
				convey.So(errors.Is(err, ErrNotFound), convey.ShouldBeTrue)
				convey.So(Message(err), convey.ShouldEqual, MsgTeamNotFound)
			})
		})

		convey.Convey("When reading stats", func() {
			stats := s.GetStats(ctx)
			convey.Convey("Then the store counts are included", func() {
				convey.So(stats["started"], convey.ShouldEqual, true)
				convey.So(stats["teams"], convey.ShouldEqual, 2)
				convey.So(stats["players"], convey.ShouldEqual, 40)
			})
		})
	})
}

func TestErrors(t *testing.T) {
	convey.Convey("Given errors of each kind", t, func() {
		cause := errors.New("boom")
		bad := WrapKind("op", ErrBadRequest, "nope", cause)
		internal := Wrap("op", cause)

		convey.Convey("Then kinds and causes are both matched", func() {
			convey.So(errors.Is(bad, ErrBadRequest), convey.ShouldBeTrue)
			convey.So(errors.Is(bad, cause), convey.ShouldBeTrue)
			convey.So(IsInternal(bad), convey.ShouldBeFalse)
			convey.So(IsInternal(internal), convey.ShouldBeTrue)
			convey.So(Message(bad), convey.ShouldEqual, "nope")
			convey.So(Message(internal), convey.ShouldEqual, InternalMessage)
			convey.So(Wrap("op", nil), convey.ShouldBeNil)
		})
	})
}

func TestIdempotencyKeyExpiry(t *testing.T) {
	convey.Convey("Given a service whose idempotency keys live for one minute", t, func() {
		var mu sync.Mutex
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		advance := func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		}

		s, store := newTestService(t, WithDedupeTTL(time.Minute), WithClock(clock))
		ctx := context.Background()
		players := putTeam(t, store, "seller", "Spain", "0.00", "1000.00")
		putTeam(t, store, "buyer", "Italy", "5000.00")
		convey.So(s.CreateOffer(ctx, "seller", CreateOfferRequest{PlayerID: players[0].ID, Price: "10.00"}), convey.ShouldBeNil)

		req := PurchaseRequest{PlayerID: players[0].ID, IdempotencyKey: "k"}
		convey.So(s.PurchasePlayer(ctx, "buyer", req), convey.ShouldBeNil)

		convey.Convey("When the key is replayed within the minute", func() {
			advance(30 * time.Second)
			err := s.PurchasePlayer(ctx, "buyer", req)
			convey.Convey("Then it is a duplicate", func() {
				convey.So(errors.Is(err, ErrConflict), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the key is replayed after it expired", func() {
			advance(2 * time.Minute)
			err := s.PurchasePlayer(ctx, "buyer", req)
			convey.Convey("Then the request runs again and finds no offer", func() {
				convey.So(errors.Is(err, ErrConflict), convey.ShouldBeFalse)
				convey.So(Message(err), convey.ShouldEqual, MsgNoOffer)
			})
		})
	})
}
