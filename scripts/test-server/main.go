// A local target server for exercising volley: a health endpoint, a few
// JSON endpoints with configurable artificial latency, and optional
// rate-limit headers with 429 responses past a request budget.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	addr      = flag.String("addr", ":8080", "listen address")
	latency   = flag.Duration("latency", 0, "artificial latency added to every response")
	jitter    = flag.Duration("jitter", 0, "random extra latency, 0..jitter")
	rateLimit = flag.Int64("rate-limit", 0, "requests per minute before 429s (0 = unlimited)")
)

var (
	windowStart atomic.Int64
	windowCount atomic.Int64
)

func main() {
	flag.Parse()

	http.HandleFunc("/status", handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	}))
	http.HandleFunc("/items", handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"items": []map[string]any{
				{"id": 1, "name": "anvil", "price": 12.50},
				{"id": 2, "name": "rope", "price": 3.25},
			},
		})
	}))
	http.HandleFunc("/search", handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"query":   r.URL.Query().Get("q"),
			"results": []int{1, 2},
		})
	}))
	http.HandleFunc("/checkout", handle(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"orderId": rand.Intn(100000)})
	}))

	server := &http.Server{
		Addr:              *addr,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	log.Printf("test target listening on %s (latency=%s jitter=%s rate-limit=%d/min)",
		*addr, *latency, *jitter, *rateLimit)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

// handle wraps an endpoint with artificial latency and rate limiting.
func handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if *latency > 0 {
			time.Sleep(*latency)
		}
		if *jitter > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(*jitter))))
		}
		if limited(w) {
			return
		}
		next(w, r)
	}
}

// limited enforces a fixed one-minute window and writes rate-limit
// headers on every response, matching the shape volley's handler parses.
func limited(w http.ResponseWriter) bool {
	if *rateLimit <= 0 {
		return false
	}

	now := time.Now().Unix()
	start := windowStart.Load()
	if now-start >= 60 {
		if windowStart.CompareAndSwap(start, now) {
			windowCount.Store(0)
		}
		start = windowStart.Load()
	}

	count := windowCount.Add(1)
	remaining := *rateLimit - count
	if remaining < 0 {
		remaining = 0
	}
	reset := start + 60

	w.Header().Set("X-RateLimit-Limit", fmt.Sprint(*rateLimit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprint(remaining))
	w.Header().Set("X-RateLimit-Reset", fmt.Sprint(reset))

	if count > *rateLimit {
		w.Header().Set("Retry-After", fmt.Sprint(reset-now))
		w.WriteHeader(http.StatusTooManyRequests)
		writeJSON(w, map[string]string{"error": "rate limit exceeded"})
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
