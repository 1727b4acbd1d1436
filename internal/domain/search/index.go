// Package search selects the composite index that serves an offer query and
// encodes the continuation cursor used to page through it.
package search

import (
	"strconv"
	"strings"

	"github.com/okian/squadmarket/internal/domain/model"
)

// Dimension is the attribute an index is partitioned by.
type Dimension int

const (
	BySort Dimension = iota
	ByCountry
	ByPosition
	ByCountryPosition
)

// SortField is the attribute an index is ordered by.
type SortField int

const (
	SortPrice SortField = iota
	SortDiscount
)

// Direction is the scan direction over an index.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Partition and sort key attribute names.
const (
	KeySortPartition   = "sort_partition"
	KeyCountry         = "country"
	KeyPosition        = "position"
	KeyCountryPosition = "country_position"
	KeyPrice           = "price"
	KeyDiscount        = "discount"
)

// Index describes one composite offer index. Index rows carry only keys.
type Index struct {
	Name         string
	Dimension    Dimension
	Sort         SortField
	PartitionKey string
	SortKey      string
}

var indexes = [...][2]Index{
	BySort: {
		SortPrice:    {Name: "Sort-Price-index", Dimension: BySort, Sort: SortPrice, PartitionKey: KeySortPartition, SortKey: KeyPrice},
		SortDiscount: {Name: "Sort-Discount-index", Dimension: BySort, Sort: SortDiscount, PartitionKey: KeySortPartition, SortKey: KeyDiscount},
	},
	ByCountry: {
		SortPrice:    {Name: "Country-Price-index", Dimension: ByCountry, Sort: SortPrice, PartitionKey: KeyCountry, SortKey: KeyPrice},
		SortDiscount: {Name: "Country-Discount-index", Dimension: ByCountry, Sort: SortDiscount, PartitionKey: KeyCountry, SortKey: KeyDiscount},
	},
	ByPosition: {
		SortPrice:    {Name: "Position-Price-index", Dimension: ByPosition, Sort: SortPrice, PartitionKey: KeyPosition, SortKey: KeyPrice},
		SortDiscount: {Name: "Position-Discount-index", Dimension: ByPosition, Sort: SortDiscount, PartitionKey: KeyPosition, SortKey: KeyDiscount},
	},
	ByCountryPosition: {
		SortPrice:    {Name: "CountryPosition-Price-index", Dimension: ByCountryPosition, Sort: SortPrice, PartitionKey: KeyCountryPosition, SortKey: KeyPrice},
		SortDiscount: {Name: "CountryPosition-Discount-index", Dimension: ByCountryPosition, Sort: SortDiscount, PartitionKey: KeyCountryPosition, SortKey: KeyDiscount},
	},
}

// Lookup returns the index for a dimension and sort field.
func Lookup(d Dimension, f SortField) Index {
	return indexes[d][f]
}

// Indexes returns every index in a stable order.
func Indexes() []Index {
	out := make([]Index, 0, len(indexes)*2)
	for _, pair := range indexes {
		out = append(out, pair[:]...)
	}
	return out
}

// DimensionFor picks the partition dimension from the active filters.
func DimensionFor(country string, position model.Position) Dimension {
	switch {
	case country != "" && position != "":
		return ByCountryPosition
	case country != "":
		return ByCountry
	case position != "":
		return ByPosition
	default:
		return BySort
	}
}

// PartitionValue returns the offer's value for the index partition key.
func (ix Index) PartitionValue(o model.Offer) string {
	switch ix.Dimension {
	case ByCountry:
		return o.Country
	case ByPosition:
		return string(o.Position)
	case ByCountryPosition:
		return o.CountryPosition
	default:
		return strconv.Itoa(o.SortPartition)
	}
}

// SortValue returns the offer's value for the index sort key.
func (ix Index) SortValue(o model.Offer) int64 {
	if ix.Sort == SortDiscount {
		return int64(o.Discount)
	}
	return int64(o.Price)
}

// Row projects an offer onto the index.
func (ix Index) Row(o model.Offer) Row {
	return Row{OfferID: o.ID, PartitionValue: ix.PartitionValue(o), SortValue: ix.SortValue(o)}
}

// Row is a key-only index entry.
type Row struct {
	OfferID        string
	PartitionValue string
	SortValue      int64
}

// Compare orders rows by sort value, then offer id.
func Compare(aSort int64, aID string, bSort int64, bID string) int {
	switch {
	case aSort < bSort:
		return -1
	case aSort > bSort:
		return 1
	}
	return strings.Compare(aID, bID)
}

// IndexQuery is a single range scan over one index partition.
type IndexQuery struct {
	Index          Index
	PartitionValue string
	Direction      Direction
	Limit          int
	After          *Cursor
}

// Beyond reports whether a row with the given keys lies strictly after the
// cursor in scan order. A nil cursor admits every row.
func (q IndexQuery) Beyond(sortValue int64, id string) bool {
	if q.After == nil {
		return true
	}
	c := Compare(sortValue, id, q.After.SortKeyValue, q.After.OfferID)
	if q.Direction == Desc {
		return c < 0
	}
	return c > 0
}

// Page is one page of index rows plus the cursor for the next page, if any.
type Page struct {
	Rows []Row
	Next *Cursor
}
