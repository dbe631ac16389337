// Package vault tracks locked funds: outflow amounts withheld in custody
// during rate-limit events, pending an exactly-once claim per
// (recipient, asset) pair.
package vault
