package model

import "time"

// OpType is the intent recorded for an offline operation.
type OpType string

const (
	OpAdd    OpType = "ADD"
	OpUpdate OpType = "UPDATE"
	OpDelete OpType = "DELETE"
)

// PendingOp is a remote write captured while the remote store was
// unreachable, replayed by the sync orchestrator.
type PendingOp struct {
	ID       string         `json:"id"`
	Type     OpType         `json:"type"`
	UserID   string         `json:"userId"`
	Record   ActivityRecord `json:"record"`
	QueuedAt time.Time      `json:"queuedAt"`
	Attempts int            `json:"attempts"`
}
