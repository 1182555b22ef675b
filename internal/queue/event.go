// Package queue defines message payloads exchanged over the message broker.
package queue

// VisitRecordedEvent is published after the counter store accepted an
// increment. It carries enough for a downstream consumer to log the visit
// without asking the store again.
type VisitRecordedEvent struct {
	Hostname  string `json:"hostname"`
	Count     int64  `json:"count"`
	Path      string `json:"path"`
	VisitedAt string `json:"visited_at"`
}
