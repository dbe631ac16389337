// Package ledger implements per-asset rate-limit configuration and the
// rolling flow-window accounting the trigger metric is evaluated against.
//
// Window boundary policy: windows accumulate from registration and are
// zeroed whenever a rate limit is cleared by an override, so each rate-limit
// incident starts a fresh measurement period.
package ledger
