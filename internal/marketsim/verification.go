package marketsim

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/okian/squadmarket/internal/domain/types"
	"github.com/okian/squadmarket/pkg/logger"
)

// verifyOrder checks that offers follow (sort key, id) in the given direction.
func verifyOrder(offers []types.Offer, orderBy, direction string) error {
	key := func(o types.Offer) int64 {
		if orderBy == "discount" {
			return int64(o.Discount)
		}
		return int64(o.Price)
	}
	desc := strings.EqualFold(direction, "DESC")
	for i := 1; i < len(offers); i++ {
		prev, cur := offers[i-1], offers[i]
		c := compare(key(prev), prev.ID, key(cur), cur.ID)
		if c == 0 {
			return fmt.Errorf("offer %s returned twice", cur.ID)
		}
		if (desc && c < 0) || (!desc && c > 0) {
			return fmt.Errorf("offers %s and %s out of %s order", prev.ID, cur.ID, direction)
		}
	}
	return nil
}

func compare(aKey int64, aID string, bKey int64, bID string) int {
	switch {
	case aKey < bKey:
		return -1
	case aKey > bKey:
		return 1
	}
	return strings.Compare(aID, bID)
}

// verifyFilter checks that every offer matches the active filters.
func verifyFilter(offers []types.Offer, country, position string) error {
	for _, o := range offers {
		if country != "" && o.Player.Country != country {
			return fmt.Errorf("offer %s has country %q, want %q", o.ID, o.Player.Country, country)
		}
		if position != "" && !strings.EqualFold(string(o.Player.Position), position) {
			return fmt.Errorf("offer %s has position %q, want %q", o.ID, o.Player.Position, position)
		}
	}
	return nil
}

// expectedCount is the number of listings matching the filters.
func expectedCount(listings []Listing, country, position string) int {
	n := 0
	for _, l := range listings {
		if country != "" && l.Country != country {
			continue
		}
		if position != "" && !strings.EqualFold(l.Position, position) {
			continue
		}
		n++
	}
	return n
}

// verifyResults checks the market after the purchase race: budgets are
// conserved, no listing sold twice, rosters are disjoint and reflect the
// winners, and sold players have left the search index.
func verifyResults(ctx context.Context, client *Client, token string, before, after map[string]types.Team, listings []Listing, results []purchaseResult) error {
	log := logger.Get()

	if err := verifyConservation(before, after); err != nil {
		return err
	}

	winners, err := winnersOf(results)
	if err != nil {
		return err
	}
	if err := verifyRosters(before, after, winners); err != nil {
		return err
	}

	remaining, _, err := collect(ctx, client, token, searchQuery{orderBy: "price", direction: "ASC"}, len(listings)+1)
	if err != nil {
		return fmt.Errorf("search after purchases: %w", err)
	}
	for _, o := range remaining {
		if _, sold := winners[o.ID]; sold {
			return fmt.Errorf("sold player %s is still listed", o.ID)
		}
	}
	if want := len(listings) - len(winners); len(remaining) != want {
		return fmt.Errorf("%d offers remain listed, want %d", len(remaining), want)
	}

	log.Info(ctx, "results verified",
		logger.Int("sold", len(winners)), logger.Int("stillListed", len(remaining)))
	return nil
}

// verifyConservation checks that the sum of budgets did not change.
func verifyConservation(before, after map[string]types.Team) error {
	var sumBefore, sumAfter money.Cents
	for _, t := range before {
		sumBefore += t.Budget
	}
	for _, t := range after {
		sumAfter += t.Budget
	}
	if sumBefore != sumAfter {
		return fmt.Errorf("budget total changed from %s to %s", sumBefore, sumAfter)
	}
	return nil
}

// winnersOf maps each sold player to its buyer, failing if a player was
// bought more than once.
func winnersOf(results []purchaseResult) (map[string]string, error) {
	winners := make(map[string]string)
	for _, r := range results {
		if r.outcome != outcomeBought {
			continue
		}
		if prev, ok := winners[r.playerID]; ok {
			return nil, fmt.Errorf("player %s bought by both %s and %s", r.playerID, prev, r.buyer)
		}
		winners[r.playerID] = r.buyer
	}
	return winners, nil
}

// verifyRosters checks that no player is on two teams, no player was lost,
// and every sold player sits on its buyer's roster.
func verifyRosters(before, after map[string]types.Team, winners map[string]string) error {
	total := 0
	for _, t := range before {
		total += len(t.Players)
	}

	owner := make(map[string]string, total)
	for _, id := range sortedIDs(after) {
		for _, p := range after[id].Players {
			if prev, ok := owner[p.ID]; ok {
				return fmt.Errorf("player %s is on both %s and %s", p.ID, prev, id)
			}
			owner[p.ID] = id
		}
	}
	if len(owner) != total {
		return fmt.Errorf("rosters hold %d players, want %d", len(owner), total)
	}
	for playerID, buyer := range winners {
		if owner[playerID] != buyer {
			return fmt.Errorf("player %s is on %q, want buyer %q", playerID, owner[playerID], buyer)
		}
	}
	return nil
}
