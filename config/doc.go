// Package config handles loading and parsing of configuration from YAML
// files and environment variables. It defines the engine configuration:
// server settings, breaker cooldown and trigger policy, admin and
// protected-contract seeding, pre-registered assets, and the settlement
// backend.
package config
