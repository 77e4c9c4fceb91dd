// Package id defines identity types for all Till entities.
//
// Internal storage keys are TypeID-based: K-sortable (UUIDv7-based), globally
// unique, URL-safe, in the format "prefix_suffix". The client-visible billing
// reference is a separate Ref type — a millisecond timestamp — kept distinct
// from any storage primary key.
package id

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Till entity types.
const (
	PrefixRecord Prefix = "bill" // Billing record
	PrefixItem   Prefix = "li"   // Billing line item
)

// ID is the internal identifier type for Till entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "bill_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// RecordID is a type-safe identifier for billing records (prefix: "bill").
type RecordID = ID

// ItemID is a type-safe identifier for billing line items (prefix: "li").
type ItemID = ID

// NewRecordID generates a new unique billing record ID.
func NewRecordID() ID { return New(PrefixRecord) }

// NewItemID generates a new unique line item ID.
func NewItemID() ID { return New(PrefixItem) }

// ParseRecordID parses a string and validates the "bill" prefix.
func ParseRecordID(s string) (ID, error) { return ParseWithPrefix(s, PrefixRecord) }

// ParseItemID parses a string and validates the "li" prefix.
func ParseItemID(s string) (ID, error) { return ParseWithPrefix(s, PrefixItem) }

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}

// ──────────────────────────────────────────────────
// Client-visible billing reference
// ──────────────────────────────────────────────────

// Ref is the client-visible identifier of a billing record: the sale's wall
// clock in milliseconds since the Unix epoch. It is deliberately distinct
// from the record's internal storage key. Two sales in the same millisecond
// collide — a documented, accepted weakness, not a uniqueness contract.
type Ref int64

// NewRef derives a Ref from the given time.
func NewRef(t time.Time) Ref {
	return Ref(t.UnixMilli())
}

// ParseRef parses a decimal Ref string as received from a client.
func ParseRef(s string) (Ref, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id: parse ref %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("id: parse ref %q: must be positive", s)
	}
	return Ref(n), nil
}

// Time returns the wall clock the Ref was derived from.
func (r Ref) Time() time.Time {
	return time.UnixMilli(int64(r))
}

// String returns the decimal representation used in URLs and filenames.
func (r Ref) String() string {
	return strconv.FormatInt(int64(r), 10)
}
