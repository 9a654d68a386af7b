// Package events fans run progress out to SSE subscribers.
package events

import (
	"encoding/json"
	"strings"
	"time"
)

// Event types. Run events carry a domain.BatchRun, job_saved a
// domain.JobRecord.
const (
	RunStarted    = "run_started"
	RunFinished   = "run_finished"
	JobSaved      = "job_saved"
	JobDeleted    = "job_deleted"
	BatchStarted  = "batch_started"
	BatchFinished = "batch_finished"
	ServiceState  = "service_state"
	Ping          = "ping"
)

// Event is the envelope every subscriber receives. Seq is assigned by the
// hub and doubles as the SSE id, so a client can resume with Last-Event-ID.
type Event struct {
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func New(reqID, typ string, data any) Event {
	e := Event{Type: typ, Version: 1, At: time.Now().UTC(), RequestID: reqID}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			e.Data = b
		}
	}
	return e
}

func (e Event) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Filter selects event types; the zero Filter passes everything.
type Filter map[string]bool

// ParseFilter reads a comma list such as "run_started,job_saved".
func ParseFilter(csv string) Filter {
	var f Filter
	for _, t := range strings.Split(csv, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if f == nil {
			f = Filter{}
		}
		f[t] = true
	}
	return f
}

func (f Filter) Allows(typ string) bool {
	return len(f) == 0 || f[typ] || typ == Ping
}
