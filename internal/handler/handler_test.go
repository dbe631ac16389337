package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/defiguard/flowbreaker/internal/accesscontrol"
	"github.com/defiguard/flowbreaker/internal/breaker"
	"github.com/defiguard/flowbreaker/internal/events"
	"github.com/defiguard/flowbreaker/internal/gateway"
	"github.com/defiguard/flowbreaker/internal/handler"
	"github.com/defiguard/flowbreaker/internal/ledger"
	"github.com/defiguard/flowbreaker/internal/policy"
	"github.com/defiguard/flowbreaker/internal/settlement"
	"github.com/defiguard/flowbreaker/internal/vault"
)

const (
	adminAddr = "0xadmin"
	vaultAddr = "0xprotocolvault"
	aliceAddr = "0xalice"
)

var _ = Describe("EngineHandler", func() {
	var (
		h      *handler.EngineHandler
		cancel context.CancelFunc
	)

	do := func(method, target, callerAddr, body string, handlerFunc http.HandlerFunc) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, reader)
		if callerAddr != "" {
			req.Header.Set("X-Caller-Address", callerAddr)
		}
		rec := httptest.NewRecorder()
		handlerFunc(rec, req)
		return rec
	}

	registerTokenX := func() {
		rec := do(http.MethodPost, "/admin/assets", adminAddr,
			`{"asset":{"type":"token","address":"0xaaaa"},"threshold":"5000","min_amount_to_limit":"100"}`,
			h.RegisterAsset)
		Expect(rec.Code).To(Equal(http.StatusOK))
	}

	reportInflow := func(amount string) *httptest.ResponseRecorder {
		return do(http.MethodPost, "/flow/inflow", vaultAddr,
			`{"asset":{"type":"token","address":"0xaaaa"},"amount":"`+amount+`"}`,
			h.ReportInflow)
	}

	BeforeEach(func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		collector := events.NewCollector(256, log)
		collector.Start(ctx)

		access, err := accesscontrol.New(adminAddr, []string{vaultAddr})
		Expect(err).NotTo(HaveOccurred())

		g := gateway.New(
			log,
			ledger.New(policy.NewPercentagePolicy()),
			breaker.New(time.Hour),
			vault.New(),
			access,
			settlement.NewMemorySettler(),
			collector,
		)
		h = handler.New(log, g, nil)
	})

	AfterEach(func() {
		cancel()
	})

	Describe("flow endpoints", func() {
		BeforeEach(registerTokenX)

		It("records an inflow", func() {
			rec := reportInflow("1000")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"result":"recorded"}`))
		})

		It("rejects unlisted callers with 403", func() {
			rec := do(http.MethodPost, "/flow/inflow", "0xmallory",
				`{"asset":{"type":"token","address":"0xaaaa"},"amount":"1"}`,
				h.ReportInflow)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("settles a harmless outflow", func() {
			reportInflow("1000")
			rec := do(http.MethodPost, "/flow/outflow", vaultAddr,
				`{"asset":{"type":"token","address":"0xaaaa"},"amount":"100","recipient":"0xalice"}`,
				h.ReportOutflow)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"result":"settled"}`))
		})

		It("defers a tripping outflow", func() {
			reportInflow("1000")
			rec := do(http.MethodPost, "/flow/outflow", vaultAddr,
				`{"asset":{"type":"token","address":"0xaaaa"},"amount":"950","recipient":"0xalice"}`,
				h.ReportOutflow)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"result":"deferred"}`))

			rec = do(http.MethodGet, "/query/locked-funds?asset=token:0xaaaa&recipient=0xalice", "", "", h.LockedFunds)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"locked":"950"}`))
		})

		It("maps a rejected outflow to 409", func() {
			reportInflow("1000")
			rec := do(http.MethodPost, "/flow/outflow", vaultAddr,
				`{"asset":{"type":"token","address":"0xaaaa"},"amount":"950","recipient":"0xalice","revert_on_rate_limit":true}`,
				h.ReportOutflow)
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		DescribeTable("rejects malformed requests with 400",
			func(body string) {
				rec := do(http.MethodPost, "/flow/outflow", vaultAddr, body, h.ReportOutflow)
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			},
			Entry("invalid JSON", `{`),
			Entry("malformed amount", `{"asset":{"type":"native"},"amount":"lots","recipient":"0xalice"}`),
			Entry("missing recipient", `{"asset":{"type":"native"},"amount":"10"}`),
			Entry("unknown asset type", `{"asset":{"type":"nft"},"amount":"10","recipient":"0xalice"}`),
		)
	})

	Describe("claims", func() {
		It("maps an empty claim to 404", func() {
			rec := do(http.MethodPost, "/claims", "",
				`{"asset":{"type":"token","address":"0xaaaa"},"recipient":"0xalice"}`,
				h.Claim)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("blocks claims mid-incident with 409, then pays out after the override", func() {
			registerTokenX()
			reportInflow("1000")
			do(http.MethodPost, "/flow/outflow", vaultAddr,
				`{"asset":{"type":"token","address":"0xaaaa"},"amount":"950","recipient":"0xalice"}`,
				h.ReportOutflow)

			claimBody := `{"asset":{"type":"token","address":"0xaaaa"},"recipient":"0xalice"}`
			rec := do(http.MethodPost, "/claims", "", claimBody, h.Claim)
			Expect(rec.Code).To(Equal(http.StatusConflict))

			rec = do(http.MethodPost, "/admin/override", adminAddr, "", h.OverrideRateLimit)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = do(http.MethodPost, "/claims", "", claimBody, h.Claim)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"claimed":"950"}`))

			rec = do(http.MethodPost, "/claims", "", claimBody, h.Claim)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("admin endpoints", func() {
		It("maps a duplicate registration to 409", func() {
			registerTokenX()
			rec := do(http.MethodPost, "/admin/assets", adminAddr,
				`{"asset":{"type":"token","address":"0xaaaa"},"threshold":"5000","min_amount_to_limit":"100"}`,
				h.RegisterAsset)
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("maps an update of an unregistered asset to 404", func() {
			rec := do(http.MethodPut, "/admin/assets", adminAddr,
				`{"asset":{"type":"token","address":"0xnope"},"threshold":"5000","min_amount_to_limit":"100"}`,
				h.UpdateAssetParams)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("maps an invalid threshold to 400", func() {
			rec := do(http.MethodPost, "/admin/assets", adminAddr,
				`{"asset":{"type":"token","address":"0xaaaa"},"threshold":"0","min_amount_to_limit":"100"}`,
				h.RegisterAsset)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps an override with no active rate limit to 409", func() {
			rec := do(http.MethodPost, "/admin/override", adminAddr, "", h.OverrideRateLimit)
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("transfers the admin role", func() {
			rec := do(http.MethodPost, "/admin/set-admin", adminAddr, `{"address":"0xnewadmin"}`, h.SetAdmin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"admin":"0xnewadmin"}`))
		})

		It("manages the protected-contract allow-list", func() {
			rec := do(http.MethodPost, "/admin/protected/add", adminAddr, `{"addresses":["0xvault2"]}`, h.AddProtectedContracts)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = do(http.MethodGet, "/query/is-protected?address=0xvault2", "", "", h.IsProtectedContract)
			Expect(rec.Body.String()).To(MatchJSON(`{"protected":true}`))

			rec = do(http.MethodPost, "/admin/protected/remove", adminAddr, `{"addresses":["0xvault2"]}`, h.RemoveProtectedContracts)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = do(http.MethodGet, "/query/is-protected?address=0xvault2", "", "", h.IsProtectedContract)
			Expect(rec.Body.String()).To(MatchJSON(`{"protected":false}`))
		})

		It("maps a grace period ending in the past to 400", func() {
			past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
			rec := do(http.MethodPost, "/admin/grace-period", adminAddr,
				`{"end_timestamp":"`+past+`"}`, h.StartGracePeriod)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps migration while operational to 409", func() {
			rec := do(http.MethodPost, "/admin/migrate", adminAddr,
				`{"assets":[{"type":"token","address":"0xaaaa"}],"recipient":"0xrecovery"}`,
				h.MigrateFundsAfterExploit)
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("Status", func() {
		It("reports the engine state", func() {
			rec := do(http.MethodGet, "/status", "", "", h.Status)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var status map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
			Expect(status["operational"]).To(BeTrue())
			Expect(status["rate_limited"]).To(BeFalse())
			Expect(status["in_grace_period"]).To(BeFalse())
			Expect(status["admin"]).To(Equal(adminAddr))
			Expect(status["cooldown_period"]).To(Equal("1h0m0s"))
			Expect(status).NotTo(HaveKey("settlement_healthy"))
		})
	})
})
