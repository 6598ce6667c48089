package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockState tracks whether a service is up and when that next changes.
type mockState struct {
	up           bool
	nextChangeAt time.Time
}

// nextFlip returns a time 20-60 seconds from now.
func nextFlip() time.Time {
	return time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
}

// StartMockHealthServer serves /health/{svc}, answering 200 while a service
// is up and 503 while it is down. Each service flips every 20-60 seconds;
// the "slow" service never answers within a second.
func StartMockHealthServer(addr string) {
	var (
		states = make(map[string]*mockState)
		mu     sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/{svc}", func(w http.ResponseWriter, r *http.Request) {
		svc := r.PathValue("svc")

		if svc == "slow" {
			time.Sleep(2 * time.Second)
		} else {
			// simulate small latency variance
			time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
		}

		mu.Lock()
		state, exists := states[svc]
		if !exists {
			state = &mockState{up: true, nextChangeAt: nextFlip()}
			states[svc] = state
		}
		if time.Now().After(state.nextChangeAt) {
			state.up = !state.up
			state.nextChangeAt = nextFlip()
			slog.Info("mock status change", "svc", svc, "up", state.up)
		}
		up := state.up
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		status, body := http.StatusOK, "ok"
		if !up {
			status, body = http.StatusServiceUnavailable, "down for maintenance"
		}
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(map[string]string{"svc": svc, "status": body}); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
