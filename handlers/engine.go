package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"p9e.in/villagepulse/config"
	"p9e.in/villagepulse/pkg/lifecycle"
	"p9e.in/villagepulse/store"
)

var engine *lifecycle.Engine

// InitEngine wires the lifecycle engine to Postgres. Call once after
// config.Connect; tests swap in their own engine over a MemStore.
func InitEngine() {
	engine = lifecycle.NewEngine(store.NewGormStore(config.DB))
}

// SetEngine overrides the engine, for handler tests.
func SetEngine(e *lifecycle.Engine) {
	engine = e
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] encode response: %v", err)
	}
}

// writeEngineError maps a lifecycle error onto the wire: the taxonomy decides
// the status code and the error string is safe to show the client.
func writeEngineError(w http.ResponseWriter, err error) {
	status := lifecycle.HTTPStatus(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		log.Printf("[HTTP] %d: %v", status, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
