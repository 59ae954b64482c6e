// Package authstore provides the durable backends for the identity
// engine: a Postgres store on pgx for production and an in-memory store
// with single-writer serialization for tests and development. Both
// guarantee that every auth.Store.InTx call commits atomically or not at
// all, and both surface uniqueness violations on credential bindings as
// auth.ErrBindingExists so the engine's compare-and-swap linking works
// identically against either.
package authstore
