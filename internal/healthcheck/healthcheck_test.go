package healthcheck_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/defiguard/flowbreaker/internal/healthcheck"
)

var _ = Describe("Watch", func() {
	var (
		server  *httptest.Server
		healthy atomic.Bool
		status  *healthcheck.Status
		logger  *slog.Logger
	)

	BeforeEach(func() {
		healthy.Store(true)
		status = healthcheck.NewStatus()
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if healthy.Load() {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("tracks settlement service health transitions", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		u, err := url.Parse(server.URL)
		Expect(err).NotTo(HaveOccurred())

		go healthcheck.Watch(ctx, u, status, 20*time.Millisecond, logger)

		Eventually(status.Healthy, "2s", "10ms").Should(BeTrue())

		healthy.Store(false)
		Eventually(status.Healthy, "2s", "10ms").Should(BeFalse())

		healthy.Store(true)
		Eventually(status.Healthy, "2s", "10ms").Should(BeTrue())
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())

		u, err := url.Parse(server.URL)
		Expect(err).NotTo(HaveOccurred())

		done := make(chan struct{})
		go func() {
			healthcheck.Watch(ctx, u, status, 20*time.Millisecond, logger)
			close(done)
		}()

		cancel()
		Eventually(done, "2s").Should(BeClosed())
	})
})
