// Package breaker implements the protocol-wide operational state machine:
// the rate-limited flag, the grace-period deadline, the cooldown-gated
// override paths, and the terminal not-operational state reached after an
// exploit.
package breaker
