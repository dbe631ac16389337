// Package healthcheck polls the remote settlement service so operators can
// see custody-transfer availability before outflows start failing.
package healthcheck
