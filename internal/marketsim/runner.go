package marketsim

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/squadmarket/internal/adapters/http/api"
	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/okian/squadmarket/internal/domain/types"
	"github.com/okian/squadmarket/pkg/logger"
)

const (
	tokenTTL = time.Hour
	// Listing prices are drawn from [value*minPricePct/100, value*maxPricePct/100].
	minPricePct = 50
	maxPricePct = 150
	// Upper bound on pages walked per query.
	maxPages = 10_000
)

// Purchase outcomes.
const (
	outcomeBought   = "bought"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

type purchaseJob struct {
	buyer    string
	playerID string
}

type purchaseResult struct {
	purchaseJob
	outcome string
	err     error
}

// Run executes a complete market simulation and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting market simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("listings", cfg.Listings),
		logger.Int("buyers", cfg.Buyers),
		logger.Int("workers", cfg.Workers),
		logger.Int("pageSize", cfg.PageSize),
		logger.String("timeout", cfg.Timeout.String()))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Mint tokens for every team
	tokens, err := mintTokens(cfg)
	if err != nil {
		return nil, fmt.Errorf("token minting failed: %w", err)
	}

	// Step 3: Snapshot teams
	before, err := fetchTeams(ctx, client, tokens)
	if err != nil {
		return nil, fmt.Errorf("team snapshot failed: %w", err)
	}

	// Step 4: List players
	listings := listPlayers(ctx, client, cfg, tokens, before, stats)
	if len(listings) == 0 {
		return nil, errors.New("no offers were created")
	}

	// Step 5: Walk every index combination
	if err := walkIndexes(ctx, client, cfg, tokens[cfg.TeamIDs()[0]], listings, stats); err != nil {
		return nil, fmt.Errorf("search verification failed: %w", err)
	}

	// Step 6: Race purchases
	results := purchaseConcurrently(ctx, client, cfg, tokens, listings, stats)

	// Step 7: Verify results
	after, err := fetchTeams(ctx, client, tokens)
	if err != nil {
		return nil, fmt.Errorf("team snapshot failed: %w", err)
	}
	if err := verifyResults(ctx, client, tokens[cfg.TeamIDs()[0]], before, after, listings, results); err != nil {
		return nil, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func mintTokens(cfg *Config) (map[string]string, error) {
	tokens := make(map[string]string, cfg.Teams)
	for _, id := range cfg.TeamIDs() {
		tok, err := api.IssueToken(cfg.Secret, cfg.Issuer, id, tokenTTL)
		if err != nil {
			return nil, err
		}
		tokens[id] = tok
	}
	return tokens, nil
}

func fetchTeams(ctx context.Context, client *Client, tokens map[string]string) (map[string]types.Team, error) {
	teams := make(map[string]types.Team, len(tokens))
	for id, tok := range tokens {
		team, err := client.GetTeam(ctx, tok)
		if err != nil {
			return nil, fmt.Errorf("team %s: %w", id, err)
		}
		teams[id] = team
	}
	return teams, nil
}

// listPlayers lists the first cfg.Listings players of every team at a random
// price around their value.
func listPlayers(ctx context.Context, client *Client, cfg *Config, tokens map[string]string, teams map[string]types.Team, stats *Stats) []Listing {
	log := logger.Get()
	var listings []Listing
	for _, id := range cfg.TeamIDs() {
		team := teams[id]
		n := min(cfg.Listings, len(team.Players))
		for _, p := range team.Players[:n] {
			price := randomPrice(p.Value)
			if err := client.CreateOffer(ctx, tokens[id], p.ID, price.String()); err != nil {
				stats.OffersFailed++
				log.Warn(ctx, "offer rejected",
					logger.String("team", id), logger.String("player", p.ID), logger.Error(err))
				continue
			}
			stats.OffersCreated++
			listings = append(listings, Listing{
				PlayerID: p.ID,
				Seller:   id,
				Country:  p.Country,
				Position: string(p.Position),
				Price:    price.String(),
			})
		}
	}
	log.Info(ctx, "offers created",
		logger.Int("created", stats.OffersCreated), logger.Int("failed", stats.OffersFailed))
	return listings
}

func randomPrice(value money.Cents) money.Cents {
	pct := minPricePct + randomInt(maxPricePct-minPricePct+1)
	price := money.Cents(int64(value) * int64(pct) / 100)
	if price <= 0 {
		price = 1
	}
	return price
}

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// searchQuery is one filter and ordering combination.
type searchQuery struct {
	country   string
	position  string
	orderBy   string
	direction string
}

func (q searchQuery) values(pageSize int) url.Values {
	v := url.Values{}
	if q.country != "" {
		v.Set("country", q.country)
	}
	if q.position != "" {
		v.Set("position", q.position)
	}
	v.Set("orderBy", q.orderBy)
	v.Set("orderDirection", q.direction)
	v.Set("pageSize", strconv.Itoa(pageSize))
	return v
}

func (q searchQuery) String() string {
	return fmt.Sprintf("country=%q position=%q orderBy=%s %s", q.country, q.position, q.orderBy, q.direction)
}

// queriesFor builds every filter and ordering combination for a listing.
func queriesFor(l Listing) []searchQuery {
	filters := [][2]string{{"", ""}, {l.Country, ""}, {"", l.Position}, {l.Country, l.Position}}
	var out []searchQuery
	for _, f := range filters {
		for _, orderBy := range []string{"price", "discount"} {
			for _, dir := range []string{"ASC", "DESC"} {
				out = append(out, searchQuery{country: f[0], position: f[1], orderBy: orderBy, direction: dir})
			}
		}
	}
	return out
}

// walkIndexes pages through every index combination and checks ordering,
// filtering and completeness against the listings.
func walkIndexes(ctx context.Context, client *Client, cfg *Config, token string, listings []Listing, stats *Stats) error {
	log := logger.Get()
	for _, q := range queriesFor(listings[0]) {
		offers, pages, err := collect(ctx, client, token, q, cfg.PageSize)
		stats.SearchQueries++
		stats.SearchPages += pages
		stats.OffersSeen += len(offers)
		if err != nil {
			return fmt.Errorf("%s: %w", q, err)
		}
		if err := verifyOrder(offers, q.orderBy, q.direction); err != nil {
			return fmt.Errorf("%s: %w", q, err)
		}
		if err := verifyFilter(offers, q.country, q.position); err != nil {
			return fmt.Errorf("%s: %w", q, err)
		}
		if want := expectedCount(listings, q.country, q.position); len(offers) != want {
			return fmt.Errorf("%s: got %d offers, want %d", q, len(offers), want)
		}
		log.Debug(ctx, "index walked",
			logger.String("query", q.String()), logger.Int("offers", len(offers)), logger.Int("pages", pages))
	}
	log.Info(ctx, "search verified",
		logger.Int("queries", stats.SearchQueries), logger.Int("pages", stats.SearchPages))
	return nil
}

// collect follows the cursor chain of q to its end.
func collect(ctx context.Context, client *Client, token string, q searchQuery, pageSize int) ([]types.Offer, int, error) {
	var (
		offers []types.Offer
		pages  int
		cursor string
	)
	for pages < maxPages {
		v := q.values(pageSize)
		if cursor != "" {
			v.Set("cursor", cursor)
		}
		res, err := client.SearchOffers(ctx, token, v)
		if err != nil {
			return offers, pages, err
		}
		pages++
		if len(res.Offers) > pageSize {
			return offers, pages, fmt.Errorf("page of %d offers exceeds page size %d", len(res.Offers), pageSize)
		}
		offers = append(offers, res.Offers...)
		if res.NextCursor == "" {
			return offers, pages, nil
		}
		cursor = res.NextCursor
	}
	return offers, pages, fmt.Errorf("cursor chain did not end after %d pages", maxPages)
}

// purchaseConcurrently has up to cfg.Buyers other teams race for every listing.
func purchaseConcurrently(ctx context.Context, client *Client, cfg *Config, tokens map[string]string, listings []Listing, stats *Stats) []purchaseResult {
	log := logger.Get()
	jobs := purchaseJobs(cfg, listings)
	log.Info(ctx, "purchasing", logger.Int("attempts", len(jobs)), logger.Int("workers", cfg.Workers))

	var (
		bought   int64
		rejected int64
		failed   int64
		mu       sync.Mutex
		results  = make([]purchaseResult, 0, len(jobs))
		wg       sync.WaitGroup
	)

	jobChan := make(chan purchaseJob, cfg.Workers*2)
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				err := client.Purchase(ctx, tokens[job.buyer], job.playerID, uuid.NewString())
				res := purchaseResult{purchaseJob: job, outcome: classify(err), err: err}
				switch res.outcome {
				case outcomeBought:
					atomic.AddInt64(&bought, 1)
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "purchase failed",
						logger.String("buyer", job.buyer), logger.String("player", job.playerID), logger.Error(err))
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobChan <- job:
			}
		}
	}()
	wg.Wait()

	stats.PurchaseAttempts = len(results)
	stats.Purchases = int(atomic.LoadInt64(&bought))
	stats.PurchasesRejected = int(atomic.LoadInt64(&rejected))
	stats.PurchasesFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "purchases completed",
		logger.Int("bought", stats.Purchases),
		logger.Int("rejected", stats.PurchasesRejected),
		logger.Int("failed", stats.PurchasesFailed))
	return results
}

// purchaseJobs pairs every listing with the next cfg.Buyers teams after the
// seller, then shuffles the attempts.
func purchaseJobs(cfg *Config, listings []Listing) []purchaseJob {
	ids := cfg.TeamIDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	buyers := cfg.Buyers
	if buyers <= 0 || buyers > len(ids)-1 {
		buyers = len(ids) - 1
	}

	var jobs []purchaseJob
	for _, l := range listings {
		for k := 1; k <= buyers; k++ {
			buyer := ids[(index[l.Seller]+k)%len(ids)]
			jobs = append(jobs, purchaseJob{buyer: buyer, playerID: l.PlayerID})
		}
	}
	for i := len(jobs) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		jobs[i], jobs[j] = jobs[j], jobs[i]
	}
	return jobs
}

// classify maps a purchase error onto an outcome. Client errors are the
// expected result of losing a race or lacking budget.
func classify(err error) string {
	if err == nil {
		return outcomeBought
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
			return outcomeRejected
		}
	}
	return outcomeFailed
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, purchasesPerSecond float64
	if stats.PurchaseAttempts > 0 {
		successRate = float64(stats.Purchases) / float64(stats.PurchaseAttempts) * 100
	}
	if stats.Duration > 0 {
		purchasesPerSecond = float64(stats.PurchaseAttempts) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("offersCreated", stats.OffersCreated),
		logger.Int("offersFailed", stats.OffersFailed),
		logger.Int("searchQueries", stats.SearchQueries),
		logger.Int("searchPages", stats.SearchPages),
		logger.Int("offersSeen", stats.OffersSeen),
		logger.Int("purchaseAttempts", stats.PurchaseAttempts),
		logger.Int("purchases", stats.Purchases),
		logger.Int("purchasesRejected", stats.PurchasesRejected),
		logger.Int("purchasesFailed", stats.PurchasesFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("purchasesPerSecond", purchasesPerSecond))
}

// sortedIDs returns the keys of m in order.
func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
