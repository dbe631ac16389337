package httpserver_test

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/defiguard/flowbreaker/internal/httpserver"
)

var _ = Describe("HTTP Server", func() {
	Context("server creation", func() {
		It("creates a server with a valid address", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			srv, err := httpserver.New("localhost:9999", handler)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("creates a server with an IP address", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			srv, err := httpserver.New("127.0.0.1:9999", handler)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("accepts a bare port", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			srv, err := httpserver.New(":9999", handler)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		DescribeTable("rejects malformed addresses",
			func(addr string) {
				handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
				_, err := httpserver.New(addr, handler)
				Expect(err).To(HaveOccurred())
			},
			Entry("no port", "localhost"),
			Entry("empty string", ""),
			Entry("garbage", "not an address"),
		)
	})

	Context("lifecycle", func() {
		It("serves requests and shuts down gracefully", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "ok")
			})
			srv, err := httpserver.New("127.0.0.1:19876", handler)
			Expect(err).NotTo(HaveOccurred())

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			var res *http.Response
			Eventually(func() error {
				var getErr error
				res, getErr = http.Get("http://127.0.0.1:19876/")
				return getErr
			}, "2s", "50ms").Should(Succeed())
			res.Body.Close()
			Expect(res.StatusCode).To(Equal(http.StatusOK))

			Expect(srv.Shutdown(context.Background())).To(Succeed())
			Eventually(errCh, "2s").Should(Receive(BeNil()))
		})

		It("tolerates shutdown without start", func() {
			srv, err := httpserver.New("127.0.0.1:19877", http.NewServeMux())
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(srv.Shutdown(ctx)).To(Succeed())
		})
	})
})
