package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/search"
	"github.com/okian/squadmarket/pkg/metrics"
)

// MemoryStore is an in-memory Store. Every offer index is kept as one treap
// per partition value. A single RWMutex makes each operation linearizable.
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]model.Player
	teams   map[string]model.Team
	offers  map[string]model.Offer
	// index name -> partition value -> treap root
	indexes map[string]map[string]*node

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closed                atomic.Bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		players:               make(map[string]model.Player),
		teams:                 make(map[string]model.Team),
		offers:                make(map[string]model.Offer),
		indexes:               make(map[string]map[string]*node),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, ix := range search.Indexes() {
		s.indexes[ix.Name] = make(map[string]*node)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater. Closing twice returns ErrClosed.
func (s *MemoryStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(s.stopChan)
	s.wg.Wait()
	return nil
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	switch {
	case err == nil:
		metrics.RecordStoreOperation(op, "ok")
	case errors.Is(err, ErrNotFound):
		metrics.RecordStoreOperation(op, "not_found")
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConditionFailed):
		metrics.RecordStoreOperation(op, "condition_failed")
	default:
		metrics.RecordStoreOperation(op, "error")
		metrics.RecordErrorByComponent("repository", op)
	}
}

// GetPlayer implements Store.
func (s *MemoryStore) GetPlayer(ctx context.Context, id string) (p model.Player, err error) {
	defer func(start time.Time) { observe("get_player", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return model.Player{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// GetTeam implements Store.
func (s *MemoryStore) GetTeam(ctx context.Context, id string) (t model.Team, err error) {
	defer func(start time.Time) { observe("get_team", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return model.Team{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, ErrNotFound
	}
	return t.Clone(), nil
}

// GetOffer implements Store.
func (s *MemoryStore) GetOffer(ctx context.Context, id string) (o model.Offer, err error) {
	defer func(start time.Time) { observe("get_offer", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return model.Offer{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return model.Offer{}, ErrNotFound
	}
	return o, nil
}

// BatchGetPlayers implements Store.
func (s *MemoryStore) BatchGetPlayers(ctx context.Context, ids []string) (out []model.Player, err error) {
	defer func(start time.Time) { observe("batch_get_players", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out = make([]model.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// BatchGetOffers implements Store.
func (s *MemoryStore) BatchGetOffers(ctx context.Context, ids []string) (out []model.Offer, err error) {
	defer func(start time.Time) { observe("batch_get_offers", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out = make([]model.Offer, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.offers[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// PutPlayer implements Store.
func (s *MemoryStore) PutPlayer(ctx context.Context, p model.Player) (err error) {
	defer func(start time.Time) { observe("put_player", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.players[p.ID] = p
	s.mu.Unlock()
	return nil
}

// PutTeam implements Store.
func (s *MemoryStore) PutTeam(ctx context.Context, t model.Team) (err error) {
	defer func(start time.Time) { observe("put_team", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.teams[t.ID] = t.Clone()
	s.mu.Unlock()
	return nil
}

// PutOfferIfAbsent implements Store.
func (s *MemoryStore) PutOfferIfAbsent(ctx context.Context, o model.Offer) (err error) {
	defer func(start time.Time) { observe("put_offer", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; ok {
		return ErrAlreadyExists
	}
	s.offers[o.ID] = o
	s.indexOffer(o)
	return nil
}

// DeleteOffer implements Store. Deleting a missing offer is not an error.
func (s *MemoryStore) DeleteOffer(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_offer", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.offers[id]; ok {
		s.unindexOffer(o)
		delete(s.offers, id)
	}
	return nil
}

// QueryOffers implements Store.
func (s *MemoryStore) QueryOffers(ctx context.Context, q search.IndexQuery) (page search.Page, err error) {
	defer func(start time.Time) { observe("query_offers", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return search.Page{}, err
	}
	if q.Limit < 1 {
		return search.Page{}, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	partitions, ok := s.indexes[q.Index.Name]
	if !ok {
		return search.Page{}, ErrNotFound
	}
	limit := FetchLimit(q.Limit)
	var rows []search.Row
	if q.Direction == search.Desc {
		collectDesc(partitions[q.PartitionValue], q, limit, &rows)
	} else {
		collectAsc(partitions[q.PartitionValue], q, limit, &rows)
	}
	return PageOf(q, rows), nil
}

// CommitPurchase implements Store.
func (s *MemoryStore) CommitPurchase(ctx context.Context, c PurchaseCommit) (err error) {
	defer func(start time.Time) { observe("commit_purchase", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[c.Offer.ID]
	if !ok || offer.Price != c.Offer.Price {
		return ErrConditionFailed
	}
	if p, ok := s.players[c.Player.ID]; !ok || p.Version != c.Player.Version {
		return ErrConditionFailed
	}
	if t, ok := s.teams[c.Seller.ID]; !ok || t.Version != c.Seller.Version {
		return ErrConditionFailed
	}
	if t, ok := s.teams[c.Buyer.ID]; !ok || t.Version != c.Buyer.Version {
		return ErrConditionFailed
	}

	player := c.Player
	player.Version++
	seller := c.Seller.Clone()
	seller.Version++
	buyer := c.Buyer.Clone()
	buyer.Version++

	s.players[player.ID] = player
	s.teams[seller.ID] = seller
	s.teams[buyer.ID] = buyer
	s.unindexOffer(offer)
	delete(s.offers, offer.ID)
	return nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Players: len(s.players), Teams: len(s.teams), Offers: len(s.offers)}, nil
}

// indexOffer adds o to every index. Caller holds the write lock.
func (s *MemoryStore) indexOffer(o model.Offer) {
	for _, ix := range search.Indexes() {
		parts := s.indexes[ix.Name]
		pv := ix.PartitionValue(o)
		parts[pv] = insert(parts[pv], o.ID, ix.SortValue(o))
	}
}

// unindexOffer removes o from every index. Caller holds the write lock.
func (s *MemoryStore) unindexOffer(o model.Offer) {
	for _, ix := range search.Indexes() {
		parts := s.indexes[ix.Name]
		pv := ix.PartitionValue(o)
		root := deleteNode(parts[pv], o.ID, ix.SortValue(o))
		if root == nil {
			delete(parts, pv)
		} else {
			parts[pv] = root
		}
	}
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	players, teams, offers := len(s.players), len(s.teams), len(s.offers)
	s.mu.RUnlock()

	metrics.UpdateStoreRecords("players", players)
	metrics.UpdateStoreRecords("teams", teams)
	metrics.UpdateStoreRecords("offers", offers)
}
