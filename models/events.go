package models

import "time"

// SyncOperation names the remote sequence that produced a SyncEvent.
type SyncOperation string

const (
	SyncCreate  SyncOperation = "create"
	SyncReplace SyncOperation = "replace"
)

// SyncEvent is published after an imposter has been pushed to Mountebank.
type SyncEvent struct {
	ID         string        `json:"id"`
	Operation  SyncOperation `json:"operation"`
	Port       int           `json:"port"`
	Protocol   string        `json:"protocol"`
	StubCount  int           `json:"stubCount"`
	DurationMs int64         `json:"durationMs"`
	At         time.Time     `json:"at"`
}
