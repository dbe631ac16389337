// Package gateway ties the engine together: it authorizes callers, updates
// the asset ledger, consults the breaker state machine, and resolves every
// outflow as settled, deferred into the locked-funds vault, or rejected.
// All state mutation happens under a single non-reentrant guard, so each
// external call is atomic with respect to the next call's trigger
// evaluation.
package gateway
