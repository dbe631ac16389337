// Package policy implements the pluggable trigger metric evaluated against
// an asset's flow window. The engine ships two policies: percentage
// (outflow as basis points of tracked inflow) and nominal (absolute net
// outflow). The policy is chosen once at startup via configuration.
package policy
