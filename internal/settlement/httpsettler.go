package settlement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/defiguard/flowbreaker/internal/asset"
)

// HTTPSettler drives a remote settlement service over JSON. The service is
// expected to expose POST /deposits, POST /transfers, GET /balances and a
// GET /health endpoint for the health-check loop.
type HTTPSettler struct {
	baseURL *url.URL
	client  *http.Client
}

func NewHTTPSettler(rawURL string) (*HTTPSettler, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("settlement URL must use http or https: %q", rawURL)
	}

	return &HTTPSettler{
		baseURL: u,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// URL returns the settlement service base URL.
func (s *HTTPSettler) URL() *url.URL {
	return s.baseURL
}

type movementRequest struct {
	Asset     asset.Asset `json:"asset"`
	Account   string      `json:"account"`
	Amount    string      `json:"amount"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

func (s *HTTPSettler) Deposit(a asset.Asset, from string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return s.post("/deposits", movementRequest{Asset: a, Account: from, Amount: amount.String()})
}

func (s *HTTPSettler) Transfer(a asset.Asset, recipient string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return s.post("/transfers", movementRequest{Asset: a, Account: recipient, Amount: amount.String()})
}

func (s *HTTPSettler) Balance(a asset.Asset) (*big.Int, error) {
	endpoint := s.baseURL.ResolveReference(&url.URL{
		Path:     "/balances",
		RawQuery: url.Values{"asset": {a.Key()}}.Encode(),
	})

	res, err := s.client.Get(endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("settlement balance query: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("settlement balance query: unexpected status %d", res.StatusCode)
	}

	var body balanceResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("settlement balance query: %w", err)
	}

	balance, ok := new(big.Int).SetString(body.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("settlement balance query: malformed balance %q", body.Balance)
	}
	return balance, nil
}

func (s *HTTPSettler) post(path string, body movementRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := s.baseURL.ResolveReference(&url.URL{Path: path})
	res, err := s.client.Post(endpoint.String(), "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("settlement %s: %w", path, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return ErrInsufficientCustody
	default:
		return fmt.Errorf("settlement %s: unexpected status %d", path, res.StatusCode)
	}
}
