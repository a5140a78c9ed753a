package domain

import (
	"bytes"
	"math"
	"strconv"
)

// DefaultItemIDThreshold bounds plausible menu item ids. Catalog keys are small
// sequential integers, while corrupted carts have been seen holding
// millisecond timestamps such as 1751552825116.
const DefaultItemIDThreshold int64 = 1_000_000

// ItemID is a client supplied menu item reference. It keeps the raw JSON so
// that entries with a non-integer id can be rejected and echoed back as sent.
type ItemID struct {
	Value int64
	Valid bool
	raw   []byte
}

// UnmarshalJSON never fails: an id that is not an integral JSON number is kept
// as invalid so the validator can report it instead of failing the request.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	*id = ItemID{raw: append([]byte(nil), data...)}

	s := string(bytes.TrimSpace(data))
	if s == "" || s == "null" || s[0] == '"' {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		id.Value, id.Valid = v, true
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return nil
	}
	id.Value, id.Valid = int64(f), true
	return nil
}

func (id ItemID) MarshalJSON() ([]byte, error) {
	if len(id.raw) > 0 {
		return id.raw, nil
	}
	if !id.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, id.Value, 10), nil
}

func (id ItemID) String() string {
	if id.Valid {
		return strconv.FormatInt(id.Value, 10)
	}
	if len(id.raw) > 0 {
		return string(id.raw)
	}
	return "null"
}

type CartEntry struct {
	ItemID   ItemID `json:"item_id"`
	Quantity int    `json:"quantity" binding:"gte=0,lte=1000"`
	Name     string `json:"name,omitempty"`
	Note     string `json:"note,omitempty"`
}

// IsPlausibleItemID reports whether id could be a catalog primary key.
func IsPlausibleItemID(id ItemID, threshold int64) bool {
	if threshold <= 0 {
		threshold = DefaultItemIDThreshold
	}
	return id.Valid && id.Value > 0 && id.Value < threshold
}

// ValidateCart splits entries into those with a plausible item id and the
// rest, keeping the input order inside each group. A threshold of zero or less
// selects DefaultItemIDThreshold. Whether an accepted id exists in the catalog
// is checked later, when the order is built.
func ValidateCart(entries []CartEntry, threshold int64) (accepted, rejected []CartEntry) {
	accepted = make([]CartEntry, 0, len(entries))
	rejected = make([]CartEntry, 0)
	for _, e := range entries {
		if IsPlausibleItemID(e.ItemID, threshold) {
			accepted = append(accepted, e)
		} else {
			rejected = append(rejected, e)
		}
	}
	return accepted, rejected
}
