package domain

import "time"

type RunStatus string

const (
	RunPending            RunStatus = "pending"
	RunRunning            RunStatus = "running"
	RunCompleted          RunStatus = "completed"
	RunStoppedByFreshness RunStatus = "stopped_by_freshness"
	RunAbortedByFailure   RunStatus = "aborted_by_failure"
)

// Terminal reports whether no further transition is possible.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunStoppedByFreshness, RunAbortedByFailure:
		return true
	}
	return false
}

// Counters only grow; use Add.
type Counters struct {
	Scraped         int `json:"scraped"`
	Duplicates      int `json:"duplicates"`
	Stale           int `json:"stale"`
	Relevant        int `json:"relevant"`
	Saved           int `json:"saved"`
	FailedToPersist int `json:"failed_to_persist"`
	Malformed       int `json:"malformed"`
}

func (c *Counters) Add(d Counters) {
	c.Scraped += nonNeg(d.Scraped)
	c.Duplicates += nonNeg(d.Duplicates)
	c.Stale += nonNeg(d.Stale)
	c.Relevant += nonNeg(d.Relevant)
	c.Saved += nonNeg(d.Saved)
	c.FailedToPersist += nonNeg(d.FailedToPersist)
	c.Malformed += nonNeg(d.Malformed)
}

// BatchRun is the audit record of one query's crawl.
type BatchRun struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	Query      SearchQuery `json:"query"`
	Status     RunStatus   `json:"status"`
	Reason     string      `json:"reason"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Pages      int         `json:"pages"`
	Slices     int         `json:"slices"`
	StaleRatio float64     `json:"stale_ratio"`
	Counters   Counters    `json:"counters"`
}

func nonNeg(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
