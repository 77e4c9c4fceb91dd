// Package till provides a point-of-sale billing and inventory engine for Go
// applications.
//
// Till is designed as a library, not a service. Import it directly into your
// Go application and put your own transport in front of it. It provides:
//
//   - Atomic sale processing: stock validation, stock decrement, and billing
//     record creation inside one store transaction
//   - Immutable billing records with line-item snapshots taken at sale time
//   - A sandbox policy that lets a designated demo actor exercise the full
//     sale flow without ever committing a durable write
//   - Invoice projection into one normalized document shape for rendering,
//     served from durable storage or from the session cache
//   - Pluggable storage: in-memory, SQLite, PostgreSQL, MongoDB
//
// # Quick Start
//
// Create a till instance with your preferred store:
//
//	import (
//	    "github.com/xraph/till"
//	    "github.com/xraph/till/store/memory"
//	)
//
//	eng := till.New(memory.New())
//
//	ctx := till.WithActor(context.Background(), till.Actor{ID: "cashier-7", Role: "cashier"})
//	rec, err := eng.ProcessSale(ctx, &billing.SaleRequest{
//	    Lines: []billing.SaleLine{{ProductID: 1, Quantity: 3}},
//	    Subtotal: till.INR(3000),
//	    Total:    till.INR(3000),
//	})
//
// # Sandbox mode
//
// Wrap the store with the sandbox policy to give demo actors a fully working
// but never-durable sale flow:
//
//	policy := sandbox.Wrap(store) // the "demo" role is sandboxed by default
//	eng := till.New(policy, till.WithSessions(sessions))
//
// A sandboxed sale behaves exactly like a real one inside its transaction,
// then evaporates. The just-created invoice is still downloadable in the same
// session because the engine retains the response in ephemeral session
// storage keyed by the record's client-visible reference.
//
// # Identity
//
// Billing records carry two identifiers: an internal TypeID storage key
// (bill_01h455vb4pex5vsknk084sn02q) and a client-visible millisecond
// timestamp reference (1700000000000) used in URLs and invoice filenames.
// All monetary calculations use integer arithmetic via the Money type.
package till
