// Package postgres implements repository.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/squadmarket/internal/adapters/repository"
	"github.com/okian/squadmarket/internal/domain/model"
	"github.com/okian/squadmarket/internal/domain/money"
	"github.com/okian/squadmarket/internal/domain/search"
	"github.com/okian/squadmarket/pkg/metrics"
)

// Store is a repository.Store backed by a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

var _ repository.Store = (*Store)(nil)

// Option tunes the pool configuration.
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// Connect opens a pool to dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool. Closing twice returns repository.ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return repository.ErrClosed
	}
	s.pool.Close()
	return nil
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	switch {
	case err == nil:
		metrics.RecordStoreOperation(op, "ok")
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordStoreOperation(op, "not_found")
	case errors.Is(err, repository.ErrAlreadyExists), errors.Is(err, repository.ErrConditionFailed):
		metrics.RecordStoreOperation(op, "condition_failed")
	default:
		metrics.RecordStoreOperation(op, "error")
		metrics.RecordErrorByComponent("postgres", op)
	}
}

const (
	playerColumns = `id, team_id, first_name, last_name, country, position, age, value, version`
	teamColumns   = `id, name, country, budget, value, player_ids, version`
	offerColumns  = `id, price, discount, country, position, country_position, sort_partition`
)

func scanPlayer(row pgx.Row) (model.Player, error) {
	var p model.Player
	var pos string
	var value int64
	err := row.Scan(&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &p.Country, &pos, &p.Age, &value, &p.Version)
	p.Position = model.Position(pos)
	p.Value = money.Cents(value)
	return p, err
}

func scanTeam(row pgx.Row) (model.Team, error) {
	var t model.Team
	var budget, value int64
	err := row.Scan(&t.ID, &t.Name, &t.Country, &budget, &value, &t.PlayerIDs, &t.Version)
	t.Budget = money.Cents(budget)
	t.Value = money.Cents(value)
	return t, err
}

func scanOffer(row pgx.Row) (model.Offer, error) {
	var o model.Offer
	var price, discount int64
	var pos string
	err := row.Scan(&o.ID, &price, &discount, &o.Country, &pos, &o.CountryPosition, &o.SortPartition)
	o.Price = money.Cents(price)
	o.Discount = money.BasisPoints(discount)
	o.Position = model.Position(pos)
	return o, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// GetPlayer implements repository.Store.
func (s *Store) GetPlayer(ctx context.Context, id string) (p model.Player, err error) {
	defer func(start time.Time) { observe("get_player", start, err) }(time.Now())
	p, err = scanPlayer(s.pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	return p, notFound(err)
}

// GetTeam implements repository.Store.
func (s *Store) GetTeam(ctx context.Context, id string) (t model.Team, err error) {
	defer func(start time.Time) { observe("get_team", start, err) }(time.Now())
	t, err = scanTeam(s.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	return t, notFound(err)
}

// GetOffer implements repository.Store.
func (s *Store) GetOffer(ctx context.Context, id string) (o model.Offer, err error) {
	defer func(start time.Time) { observe("get_offer", start, err) }(time.Now())
	o, err = scanOffer(s.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	return o, notFound(err)
}

// BatchGetPlayers implements repository.Store.
func (s *Store) BatchGetPlayers(ctx context.Context, ids []string) (out []model.Player, err error) {
	defer func(start time.Time) { observe("batch_get_players", start, err) }(time.Now())
	rows, err := s.pool.Query(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// BatchGetOffers implements repository.Store.
func (s *Store) BatchGetOffers(ctx context.Context, ids []string) (out []model.Offer, err error) {
	defer func(start time.Time) { observe("batch_get_offers", start, err) }(time.Now())
	rows, err := s.pool.Query(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PutPlayer implements repository.Store.
func (s *Store) PutPlayer(ctx context.Context, p model.Player) (err error) {
	defer func(start time.Time) { observe("put_player", start, err) }(time.Now())
	_, err = s.pool.Exec(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			country = EXCLUDED.country, position = EXCLUDED.position, age = EXCLUDED.age,
			value = EXCLUDED.value, version = EXCLUDED.version
	`, p.ID, p.TeamID, p.FirstName, p.LastName, p.Country, string(p.Position), p.Age, int64(p.Value), p.Version)
	if err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// PutTeam implements repository.Store.
func (s *Store) PutTeam(ctx context.Context, t model.Team) (err error) {
	defer func(start time.Time) { observe("put_team", start, err) }(time.Now())
	_, err = s.pool.Exec(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, country = EXCLUDED.country, budget = EXCLUDED.budget,
			value = EXCLUDED.value, player_ids = EXCLUDED.player_ids, version = EXCLUDED.version
	`, t.ID, t.Name, t.Country, int64(t.Budget), int64(t.Value), nonNil(t.PlayerIDs), t.Version)
	if err != nil {
		return fmt.Errorf("upsert team: %w", err)
	}
	return nil
}

// PutOfferIfAbsent implements repository.Store.
func (s *Store) PutOfferIfAbsent(ctx context.Context, o model.Offer) (err error) {
	defer func(start time.Time) { observe("put_offer", start, err) }(time.Now())
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO offers (`+offerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, o.ID, int64(o.Price), int64(o.Discount), o.Country, string(o.Position), o.CountryPosition, o.SortPartition)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

// DeleteOffer implements repository.Store.
func (s *Store) DeleteOffer(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_offer", start, err) }(time.Now())
	if _, err = s.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	return nil
}

// QueryOffers implements repository.Store. Column names come from the closed
// index table in package search, never from caller input.
func (s *Store) QueryOffers(ctx context.Context, q search.IndexQuery) (page search.Page, err error) {
	defer func(start time.Time) { observe("query_offers", start, err) }(time.Now())
	if q.Limit < 1 {
		return search.Page{}, repository.ErrInvalidLimit
	}

	pk, sk := q.Index.PartitionKey, q.Index.SortKey
	var pv any = q.PartitionValue
	if pk == search.KeySortPartition {
		n, err := strconv.Atoi(q.PartitionValue)
		if err != nil {
			return search.Page{}, fmt.Errorf("sort partition %q: %w", q.PartitionValue, err)
		}
		pv = n
	}

	cmp, order := ">", "ASC"
	if q.Direction == search.Desc {
		cmp, order = "<", "DESC"
	}

	args := []any{pv, int64(repository.FetchLimit(q.Limit))}
	sql := `SELECT id, ` + sk + ` FROM offers WHERE ` + pk + ` = $1`
	if q.After != nil {
		sql += ` AND (` + sk + `, id) ` + cmp + ` ($3, $4)`
		args = append(args, q.After.SortKeyValue, q.After.OfferID)
	}
	sql += ` ORDER BY ` + sk + ` ` + order + `, id ` + order + ` LIMIT $2`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return search.Page{}, fmt.Errorf("query %s: %w", q.Index.Name, err)
	}
	defer rows.Close()

	var out []search.Row
	for rows.Next() {
		r := search.Row{PartitionValue: q.PartitionValue}
		if err := rows.Scan(&r.OfferID, &r.SortValue); err != nil {
			return search.Page{}, fmt.Errorf("scan index row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return search.Page{}, fmt.Errorf("iterate %s: %w", q.Index.Name, err)
	}
	return repository.PageOf(q, out), nil
}

// CommitPurchase implements repository.Store in one transaction. Deleting the
// offer is the existence guard; the version predicates reject stale reads.
func (s *Store) CommitPurchase(ctx context.Context, c repository.PurchaseCommit) (err error) {
	defer func(start time.Time) { observe("commit_purchase", start, err) }(time.Now())

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `DELETE FROM offers WHERE id = $1 AND price = $2`, c.Offer.ID, int64(c.Offer.Price))
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrConditionFailed
	}

	cmd, err = tx.Exec(ctx, `
		UPDATE players SET team_id = $2, value = $3, version = version + 1
		WHERE id = $1 AND version = $4
	`, c.Player.ID, c.Player.TeamID, int64(c.Player.Value), c.Player.Version)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrConditionFailed
	}

	for _, t := range []model.Team{c.Seller, c.Buyer} {
		cmd, err = tx.Exec(ctx, `
			UPDATE teams SET budget = $2, value = $3, player_ids = $4, version = version + 1
			WHERE id = $1 AND version = $5
		`, t.ID, int64(t.Budget), int64(t.Value), nonNil(t.PlayerIDs), t.Version)
		if err != nil {
			return fmt.Errorf("update team %s: %w", t.ID, err)
		}
		if cmd.RowsAffected() == 0 {
			return repository.ErrConditionFailed
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Stats implements repository.Store.
func (s *Store) Stats(ctx context.Context) (repository.Stats, error) {
	var st repository.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM players), (SELECT count(*) FROM teams), (SELECT count(*) FROM offers)
	`).Scan(&st.Players, &st.Teams, &st.Offers)
	if err != nil {
		return repository.Stats{}, fmt.Errorf("count records: %w", err)
	}
	return st, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
