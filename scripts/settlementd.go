// settlementd is a standalone mock settlement service for exercising the
// engine's http settlement backend. It keeps custody balances in memory and
// exposes the endpoints the HTTPSettler drives, plus /health for the
// health-check loop.
//
// Usage:
//
//	go run settlementd.go -port 9090
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"sync"
)

type movement struct {
	Asset   json.RawMessage `json:"asset"`
	Account string          `json:"account"`
	Amount  string          `json:"amount"`
}

type custody struct {
	mutex    sync.Mutex
	balances map[string]*big.Int
}

func assetKey(raw json.RawMessage) (string, error) {
	var a struct {
		Type    string `json:"type"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", err
	}
	if a.Type == "native" {
		return "native", nil
	}
	return "token:" + a.Address, nil
}

func (c *custody) apply(w http.ResponseWriter, r *http.Request, sign int) {
	var m movement
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key, err := assetKey(m.Asset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	amount, ok := new(big.Int).SetString(m.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		http.Error(w, "malformed amount", http.StatusBadRequest)
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	balance, exists := c.balances[key]
	if !exists {
		balance = new(big.Int)
		c.balances[key] = balance
	}

	if sign < 0 {
		if balance.Cmp(amount) < 0 {
			http.Error(w, "insufficient custody", http.StatusConflict)
			return
		}
		balance.Sub(balance, amount)
	} else {
		balance.Add(balance, amount)
	}

	log.Printf("%s %s %s -> balance %s", r.URL.Path, key, amount, balance)
	w.WriteHeader(http.StatusCreated)
}

func main() {
	port := flag.Int("port", 9090, "port to listen on")
	flag.Parse()

	c := &custody{balances: make(map[string]*big.Int)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /deposits", func(w http.ResponseWriter, r *http.Request) { c.apply(w, r, +1) })
	mux.HandleFunc("POST /transfers", func(w http.ResponseWriter, r *http.Request) { c.apply(w, r, -1) })
	mux.HandleFunc("GET /balances", func(w http.ResponseWriter, r *http.Request) {
		c.mutex.Lock()
		defer c.mutex.Unlock()

		balance, exists := c.balances[r.URL.Query().Get("asset")]
		if !exists {
			balance = new(big.Int)
		}
		json.NewEncoder(w).Encode(map[string]string{"balance": balance.String()})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock settlement service listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
