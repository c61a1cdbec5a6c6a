package media

import (
	"context"
	"time"
)

// Record is one resolved (or failed) decision, kept for the activity view.
type Record struct {
	ID         int64        `json:"id"`
	Decision   DecisionKind `json:"decision"`
	SourcePath string       `json:"sourcePath"`
	ResultPath string       `json:"resultPath,omitempty"`
	Failed     bool         `json:"failed"`
	Message    string       `json:"message"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// History stores past decisions.
type History interface {
	AddRecord(ctx context.Context, record Record) error
	ListRecords(ctx context.Context, limit int) ([]Record, error)
}
