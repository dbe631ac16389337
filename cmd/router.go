package main

import (
	"net/http"

	"github.com/defiguard/flowbreaker/internal/events"
	"github.com/defiguard/flowbreaker/internal/handler"
)

func setupRouter(engineHandler *handler.EngineHandler, collector *events.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	// Protected-contract surface.
	mux.HandleFunc("POST /flow/inflow", engineHandler.ReportInflow)
	mux.HandleFunc("POST /flow/outflow", engineHandler.ReportOutflow)

	// Claimant surface.
	mux.HandleFunc("POST /claims", engineHandler.Claim)

	// Admin surface.
	mux.HandleFunc("POST /admin/assets", engineHandler.RegisterAsset)
	mux.HandleFunc("PUT /admin/assets", engineHandler.UpdateAssetParams)
	mux.HandleFunc("POST /admin/set-admin", engineHandler.SetAdmin)
	mux.HandleFunc("POST /admin/override", engineHandler.OverrideRateLimit)
	mux.HandleFunc("POST /admin/protected/add", engineHandler.AddProtectedContracts)
	mux.HandleFunc("POST /admin/protected/remove", engineHandler.RemoveProtectedContracts)
	mux.HandleFunc("POST /admin/grace-period", engineHandler.StartGracePeriod)
	mux.HandleFunc("POST /admin/mark-not-operational", engineHandler.MarkAsNotOperational)
	mux.HandleFunc("POST /admin/migrate", engineHandler.MigrateFundsAfterExploit)

	// Open surface.
	mux.HandleFunc("POST /override-expired", engineHandler.OverrideExpiredRateLimit)
	mux.HandleFunc("GET /status", engineHandler.Status)
	mux.HandleFunc("GET /query/locked-funds", engineHandler.LockedFunds)
	mux.HandleFunc("GET /query/is-protected", engineHandler.IsProtectedContract)
	mux.HandleFunc("GET /query/is-triggered", engineHandler.IsRateLimitTriggered)
	mux.HandleFunc("GET /events", collector.JournalHandler())
	mux.HandleFunc("GET /events/feed", collector.FeedHandler())
	mux.HandleFunc("GET /health", engineHandler.Health)

	return mux
}
