package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/squadmarket/internal/domain/model"
)

// DefaultPageSize applies when a request does not set one.
const DefaultPageSize = 10

// Params carries the raw, caller-supplied search parameters.
type Params struct {
	Country        string
	Position       string
	OrderBy        string
	OrderDirection string
	PageSize       string
	Cursor         string
}

// Query is a validated search request with defaults applied.
type Query struct {
	Country   string
	Position  model.Position
	Sort      SortField
	Direction Direction
	PageSize  int
	Cursor    *Cursor
}

// ParseQuery validates p and applies defaults. defaultPageSize is used when
// p.PageSize is empty; a non-positive value falls back to DefaultPageSize.
func ParseQuery(p Params, defaultPageSize int) (Query, error) {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	q := Query{Country: strings.TrimSpace(p.Country), PageSize: defaultPageSize}

	if s := strings.TrimSpace(p.Position); s != "" {
		pos, ok := model.ParsePosition(s)
		if !ok {
			return Query{}, fmt.Errorf("%w must be one of GOALKEEPER, DEFENDER, MIDFIELDER, ATTACKER", ErrInvalidPosition)
		}
		q.Position = pos
	}

	switch strings.ToLower(strings.TrimSpace(p.OrderBy)) {
	case "", "price":
		q.Sort, q.Direction = SortPrice, Asc
	case "discount":
		q.Sort, q.Direction = SortDiscount, Desc
	default:
		return Query{}, fmt.Errorf("%w must be price or discount", ErrInvalidOrderBy)
	}

	switch strings.ToUpper(strings.TrimSpace(p.OrderDirection)) {
	case "":
	case "ASC":
		q.Direction = Asc
	case "DESC":
		q.Direction = Desc
	default:
		return Query{}, fmt.Errorf("%w must be ASC or DESC", ErrInvalidDirection)
	}

	if s := strings.TrimSpace(p.PageSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return Query{}, fmt.Errorf("%w must be a positive integer", ErrInvalidPageSize)
		}
		q.PageSize = n
	}

	if s := strings.TrimSpace(p.Cursor); s != "" {
		c, err := DecodeCursor(s)
		if err != nil {
			return Query{}, err
		}
		if !c.Matches(q.Index(), q.PartitionValue()) {
			return Query{}, fmt.Errorf("%w: cursor does not belong to this query", ErrInvalidCursor)
		}
		q.Cursor = c
	}
	return q, nil
}

// Index returns the index that serves the query.
func (q Query) Index() Index {
	return Lookup(DimensionFor(q.Country, q.Position), q.Sort)
}

// PartitionValue returns the partition the query scans.
func (q Query) PartitionValue() string {
	switch DimensionFor(q.Country, q.Position) {
	case ByCountry:
		return q.Country
	case ByPosition:
		return string(q.Position)
	case ByCountryPosition:
		return model.CountryPositionKey(q.Country, q.Position)
	default:
		return strconv.Itoa(model.SortPartition)
	}
}

// IndexQuery returns the range scan for the query.
func (q Query) IndexQuery() IndexQuery {
	return IndexQuery{
		Index:          q.Index(),
		PartitionValue: q.PartitionValue(),
		Direction:      q.Direction,
		Limit:          q.PageSize,
		After:          q.Cursor,
	}
}
