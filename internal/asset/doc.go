// Package asset defines the Asset identifier used throughout the engine:
// a tagged union of token contract addresses and the native currency.
// Modelling the native currency as its own variant instead of a sentinel
// address removes an entire class of address-comparison bugs.
package asset
