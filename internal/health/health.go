// Package health reports whether the pieces the agent depends on are
// usable right now. Checks are cheap and synchronous; this backs the
// status command, not a serving endpoint.
package health

import (
	"context"
	"time"

	"github.com/sagebot/sage/internal/store"
)

// Component is one named check result.
type Component struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok" or "error"
	Message string `json:"message,omitempty"`
}

// Report aggregates all component checks.
type Report struct {
	Timestamp  time.Time   `json:"timestamp"`
	Components []Component `json:"components"`
}

// Status returns "ok" unless any component failed.
func (r Report) Status() string {
	for _, c := range r.Components {
		if c.Status != "ok" {
			return "error"
		}
	}
	return "ok"
}

// Check probes the database and the model credentials.
func Check(ctx context.Context, db *store.DB, apiKey string) Report {
	r := Report{Timestamp: time.Now()}

	dbc := Component{Name: "database", Status: "ok"}
	if err := db.PingContext(ctx); err != nil {
		dbc.Status = "error"
		dbc.Message = err.Error()
	}
	r.Components = append(r.Components, dbc)

	llmc := Component{Name: "llm", Status: "ok"}
	if apiKey == "" {
		llmc.Status = "error"
		llmc.Message = "OPENROUTER_API_KEY not set"
	}
	r.Components = append(r.Components, llmc)

	return r
}
