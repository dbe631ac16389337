package settlement_test

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/defiguard/flowbreaker/internal/asset"
	"github.com/defiguard/flowbreaker/internal/settlement"
)

var _ = Describe("MemorySettler", func() {
	var (
		s      *settlement.MemorySettler
		tokenX asset.Asset
	)

	BeforeEach(func() {
		s = settlement.NewMemorySettler()
		tokenX, _ = asset.Token("0xaaaa")
	})

	It("tracks custody through deposits and transfers", func() {
		Expect(s.Deposit(tokenX, "0xcaller", big.NewInt(1000))).To(Succeed())

		balance, err := s.Balance(tokenX)
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(Equal(big.NewInt(1000)))

		Expect(s.Transfer(tokenX, "0xrecipient", big.NewInt(400))).To(Succeed())

		balance, _ = s.Balance(tokenX)
		Expect(balance).To(Equal(big.NewInt(600)))
	})

	It("refuses transfers beyond custody", func() {
		Expect(s.Deposit(tokenX, "0xcaller", big.NewInt(100))).To(Succeed())
		err := s.Transfer(tokenX, "0xrecipient", big.NewInt(101))
		Expect(err).To(MatchError(settlement.ErrInsufficientCustody))
	})

	It("reports zero custody for untouched assets", func() {
		balance, err := s.Balance(asset.Native())
		Expect(err).NotTo(HaveOccurred())
		Expect(balance.Sign()).To(BeZero())
	})

	DescribeTable("rejects non-positive amounts",
		func(op func(*big.Int) error) {
			Expect(op(big.NewInt(0))).To(MatchError(settlement.ErrInvalidAmount))
			Expect(op(big.NewInt(-5))).To(MatchError(settlement.ErrInvalidAmount))
			Expect(op(nil)).To(MatchError(settlement.ErrInvalidAmount))
		},
		Entry("Deposit", func(amount *big.Int) error {
			return settlement.NewMemorySettler().Deposit(asset.Native(), "0xcaller", amount)
		}),
		Entry("Transfer", func(amount *big.Int) error {
			return settlement.NewMemorySettler().Transfer(asset.Native(), "0xrecipient", amount)
		}),
	)
})

var _ = Describe("HTTPSettler", func() {
	var (
		server   *httptest.Server
		received map[string]json.RawMessage
	)

	BeforeEach(func() {
		received = make(map[string]json.RawMessage)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/deposits", "/transfers":
				var raw json.RawMessage
				Expect(json.NewDecoder(r.Body).Decode(&raw)).To(Succeed())
				received[r.URL.Path] = raw
				w.WriteHeader(http.StatusCreated)
			case "/balances":
				Expect(r.URL.Query().Get("asset")).To(Equal("native"))
				json.NewEncoder(w).Encode(map[string]string{"balance": "12345"})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("rejects non-http URLs", func() {
		_, err := settlement.NewHTTPSettler("ftp://settlement")
		Expect(err).To(HaveOccurred())
	})

	It("posts transfers as JSON", func() {
		s, err := settlement.NewHTTPSettler(server.URL)
		Expect(err).NotTo(HaveOccurred())

		tokenX, _ := asset.Token("0xaaaa")
		Expect(s.Transfer(tokenX, "0xrecipient", big.NewInt(42))).To(Succeed())

		Expect(string(received["/transfers"])).To(MatchJSON(
			`{"asset":{"type":"token","address":"0xaaaa"},"account":"0xrecipient","amount":"42"}`))
	})

	It("queries balances", func() {
		s, err := settlement.NewHTTPSettler(server.URL)
		Expect(err).NotTo(HaveOccurred())

		balance, err := s.Balance(asset.Native())
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(Equal(big.NewInt(12345)))
	})

	It("maps a conflict response to ErrInsufficientCustody", func() {
		conflict := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer conflict.Close()

		s, err := settlement.NewHTTPSettler(conflict.URL)
		Expect(err).NotTo(HaveOccurred())

		err = s.Transfer(asset.Native(), "0xrecipient", big.NewInt(1))
		Expect(err).To(MatchError(settlement.ErrInsufficientCustody))
	})
})
