package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/defiguard/flowbreaker/internal/accesscontrol"
	"github.com/defiguard/flowbreaker/internal/asset"
	"github.com/defiguard/flowbreaker/internal/breaker"
	"github.com/defiguard/flowbreaker/internal/gateway"
	"github.com/defiguard/flowbreaker/internal/healthcheck"
	"github.com/defiguard/flowbreaker/internal/ledger"
	"github.com/defiguard/flowbreaker/internal/settlement"
	"github.com/defiguard/flowbreaker/internal/vault"
)

// callerHeader carries the caller identity. The engine sits on a pre-vetted
// internal surface; transport-level authentication belongs to the fronting
// proxy, the engine enforces role and allow-list membership.
const callerHeader = "X-Caller-Address"

// EngineHandler adapts the gateway's operations to JSON over HTTP.
type EngineHandler struct {
	logger           *slog.Logger
	gateway          *gateway.Gateway
	settlementHealth *healthcheck.Status
}

func New(logger *slog.Logger, g *gateway.Gateway, settlementHealth *healthcheck.Status) *EngineHandler {
	return &EngineHandler{
		logger:           logger,
		gateway:          g,
		settlementHealth: settlementHealth,
	}
}

type flowRequest struct {
	Asset             asset.Asset `json:"asset"`
	Amount            string      `json:"amount"`
	Recipient         string      `json:"recipient,omitempty"`
	RevertOnRateLimit bool        `json:"revert_on_rate_limit,omitempty"`
}

type claimRequest struct {
	Asset     asset.Asset `json:"asset"`
	Recipient string      `json:"recipient"`
}

type assetParamsRequest struct {
	Asset            asset.Asset `json:"asset"`
	Threshold        string      `json:"threshold"`
	MinAmountToLimit string      `json:"min_amount_to_limit"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type addressesRequest struct {
	Addresses []string `json:"addresses"`
}

type gracePeriodRequest struct {
	EndTimestamp time.Time `json:"end_timestamp"`
}

type migrateRequest struct {
	Assets    []asset.Asset `json:"assets"`
	Recipient string        `json:"recipient"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *EngineHandler) ReportInflow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}

	if err := h.gateway.ReportInflow(caller(r), req.Asset, amount); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "recorded"})
}

func (h *EngineHandler) ReportOutflow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if req.Recipient == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "recipient is required"})
		return
	}

	outcome, err := h.gateway.ReportOutflow(caller(r), req.Asset, amount, req.Recipient, req.RevertOnRateLimit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": string(outcome)})
}

func (h *EngineHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := h.gateway.ClaimLockedFunds(req.Asset, req.Recipient)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"claimed": amount.String()})
}

func (h *EngineHandler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	h.assetParams(w, r, h.gateway.RegisterAsset)
}

func (h *EngineHandler) UpdateAssetParams(w http.ResponseWriter, r *http.Request) {
	h.assetParams(w, r, h.gateway.UpdateAssetParams)
}

func (h *EngineHandler) assetParams(
	w http.ResponseWriter,
	r *http.Request,
	op func(caller string, a asset.Asset, threshold, minAmount *big.Int) error,
) {
	var req assetParamsRequest
	if !h.decode(w, r, &req) {
		return
	}
	threshold, ok := new(big.Int).SetString(req.Threshold, 10)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed threshold"})
		return
	}
	minAmount, ok := new(big.Int).SetString(req.MinAmountToLimit, 10)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed min_amount_to_limit"})
		return
	}

	if err := op(caller(r), req.Asset, threshold, minAmount); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *EngineHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.SetAdmin(caller(r), req.Address); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"admin": h.gateway.Admin()})
}

func (h *EngineHandler) OverrideRateLimit(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.OverrideRateLimit(caller(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "cleared"})
}

func (h *EngineHandler) OverrideExpiredRateLimit(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.OverrideExpiredRateLimit(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "cleared"})
}

func (h *EngineHandler) AddProtectedContracts(w http.ResponseWriter, r *http.Request) {
	h.protectedContracts(w, r, h.gateway.AddProtectedContracts)
}

func (h *EngineHandler) RemoveProtectedContracts(w http.ResponseWriter, r *http.Request) {
	h.protectedContracts(w, r, h.gateway.RemoveProtectedContracts)
}

func (h *EngineHandler) protectedContracts(
	w http.ResponseWriter,
	r *http.Request,
	op func(caller string, addrs []string) error,
) {
	var req addressesRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := op(caller(r), req.Addresses); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *EngineHandler) StartGracePeriod(w http.ResponseWriter, r *http.Request) {
	var req gracePeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.StartGracePeriod(caller(r), req.EndTimestamp); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *EngineHandler) MarkAsNotOperational(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.MarkAsNotOperational(caller(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *EngineHandler) MigrateFundsAfterExploit(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.MigrateFundsAfterExploit(caller(r), req.Assets, req.Recipient); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"result": "migrated"})
}

func (h *EngineHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"operational":      h.gateway.IsOperational(),
		"rate_limited":     h.gateway.IsRateLimited(),
		"in_grace_period":  h.gateway.IsInGracePeriod(),
		"cooldown_period":  h.gateway.RateLimitCooldownPeriod().String(),
		"last_rate_limit":  h.gateway.LastRateLimitTimestamp(),
		"grace_period_end": h.gateway.GracePeriodEndTimestamp(),
		"admin":            h.gateway.Admin(),
	}
	if h.settlementHealth != nil {
		status["settlement_healthy"] = h.settlementHealth.Healthy()
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *EngineHandler) LockedFunds(w http.ResponseWriter, r *http.Request) {
	a, ok := h.queryAsset(w, r)
	if !ok {
		return
	}
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "recipient is required"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"locked": h.gateway.LockedFunds(a, recipient).String(),
	})
}

func (h *EngineHandler) IsProtectedContract(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "address is required"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{
		"protected": h.gateway.IsProtectedContract(addr),
	})
}

func (h *EngineHandler) IsRateLimitTriggered(w http.ResponseWriter, r *http.Request) {
	a, ok := h.queryAsset(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{
		"triggered": h.gateway.IsRateLimitTriggered(a),
	})
}

func (h *EngineHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func caller(r *http.Request) string {
	return r.Header.Get(callerHeader)
}

func (h *EngineHandler) queryAsset(w http.ResponseWriter, r *http.Request) (asset.Asset, bool) {
	a, err := asset.Parse(r.URL.Query().Get("asset"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return asset.Asset{}, false
	}
	return a, true
}

func (h *EngineHandler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func (h *EngineHandler) parseAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed amount"})
		return nil, false
	}
	return amount, true
}

func (h *EngineHandler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, accesscontrol.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrNothingToClaim),
		errors.Is(err, ledger.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyRegistered),
		errors.Is(err, gateway.ErrRateLimitExceeded),
		errors.Is(err, gateway.ErrRateLimited),
		errors.Is(err, gateway.ErrStillOperational),
		errors.Is(err, breaker.ErrNotOperational),
		errors.Is(err, breaker.ErrNotRateLimited),
		errors.Is(err, breaker.ErrCooldownNotElapsed),
		errors.Is(err, settlement.ErrInsufficientCustody):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidThreshold),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, breaker.ErrInvalidTimestamp),
		errors.Is(err, accesscontrol.ErrZeroAddress),
		errors.Is(err, settlement.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *EngineHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
