package search

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const cursorVersion = 1

// Cursor identifies the last row of a page on a specific index.
type Cursor struct {
	PartitionKeyName  string
	PartitionKeyValue string
	SortKeyName       string
	SortKeyValue      int64
	OfferID           string
}

type cursorWire struct {
	V   int    `json:"v"`
	PK  string `json:"pk"`
	PKV string `json:"pkv"`
	SK  string `json:"sk"`
	SKV int64  `json:"skv"`
	ID  string `json:"id"`
}

// NewCursor builds the cursor that resumes after row on ix.
func NewCursor(ix Index, row Row) *Cursor {
	return &Cursor{
		PartitionKeyName:  ix.PartitionKey,
		PartitionKeyValue: row.PartitionValue,
		SortKeyName:       ix.SortKey,
		SortKeyValue:      row.SortValue,
		OfferID:           row.OfferID,
	}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c *Cursor) Encode() string {
	b, _ := json.Marshal(cursorWire{
		V:   cursorVersion,
		PK:  c.PartitionKeyName,
		PKV: c.PartitionKeyValue,
		SK:  c.SortKeyName,
		SKV: c.SortKeyValue,
		ID:  c.OfferID,
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed encoding", ErrInvalidCursor)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var w cursorWire
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrInvalidCursor)
	}
	if w.V != cursorVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCursor, w.V)
	}
	switch w.PK {
	case KeySortPartition, KeyCountry, KeyPosition, KeyCountryPosition:
	default:
		return nil, fmt.Errorf("%w: unknown partition key %q", ErrInvalidCursor, w.PK)
	}
	if w.SK != KeyPrice && w.SK != KeyDiscount {
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidCursor, w.SK)
	}
	if w.ID == "" || w.PKV == "" {
		return nil, fmt.Errorf("%w: missing key values", ErrInvalidCursor)
	}
	return &Cursor{
		PartitionKeyName:  w.PK,
		PartitionKeyValue: w.PKV,
		SortKeyName:       w.SK,
		SortKeyValue:      w.SKV,
		OfferID:           w.ID,
	}, nil
}

// Matches reports whether the cursor was issued for ix and partition value pv.
func (c *Cursor) Matches(ix Index, pv string) bool {
	return c.PartitionKeyName == ix.PartitionKey &&
		c.SortKeyName == ix.SortKey &&
		c.PartitionKeyValue == pv
}
