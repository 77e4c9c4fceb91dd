package till

import (
	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// ID is the internal identifier type for Till entities.
type ID = id.ID

// Ref is the client-visible billing record reference.
type Ref = id.Ref

// Re-export Money constructors
var (
	INR        = types.INR
	USD        = types.USD
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMajor = types.ParseMajor
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
