// Package remote defines the per-user remote document store that mirrors
// the local activity journal, with Postgres and in-memory implementations.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// ErrNotFound is returned when a document does not exist for the user.
var ErrNotFound = errors.New("remote document not found")

// ErrUnavailable is returned when the remote store cannot be reached.
var ErrUnavailable = errors.New("remote store unavailable")

// Document is a stored activity together with its remote identity.
type Document struct {
	// ID is the identifier generated by the remote store.
	ID string

	// Record is the stored activity. Record.RemoteID mirrors ID.
	Record model.ActivityRecord

	// CreatedAt is assigned by the server on create.
	CreatedAt time.Time
}

// Queryable document fields.
const (
	FieldID    = "id"
	FieldDate  = "date"
	FieldTitle = "title"
)

// Store is a per-user collection of activity documents plus the user's goal
// tree. Implementations must be safe for concurrent use.
type Store interface {
	// Create stores rec and returns the generated document id.
	Create(ctx context.Context, userID string, rec model.ActivityRecord) (string, error)

	// Get returns the document with docID or ErrNotFound.
	Get(ctx context.Context, userID, docID string) (*Document, error)

	// Update merges rec into the document with docID or returns ErrNotFound.
	Update(ctx context.Context, userID, docID string, rec model.ActivityRecord) error

	// Delete removes the document with docID or returns ErrNotFound.
	Delete(ctx context.Context, userID, docID string) error

	// QueryByField returns documents whose field equals value, oldest first.
	QueryByField(ctx context.Context, userID, field, value string) ([]Document, error)

	// All returns every document of the user, oldest first.
	All(ctx context.Context, userID string) ([]Document, error)

	// LoadGoals returns the raw goal document or ErrNotFound.
	LoadGoals(ctx context.Context, userID string) (json.RawMessage, error)

	// SaveGoals replaces the goal document.
	SaveGoals(ctx context.Context, userID string, goals json.RawMessage) error
}

// Records flattens documents into records carrying their RemoteID.
func Records(docs []Document) []model.ActivityRecord {
	out := make([]model.ActivityRecord, 0, len(docs))
	for _, d := range docs {
		rec := d.Record
		rec.RemoteID = d.ID
		out = append(out, rec)
	}
	return out
}

// Unavailable is the Store used when no remote is configured. Every call
// fails with ErrUnavailable, so callers take their local fallback paths.
type Unavailable struct{}

func (Unavailable) Create(context.Context, string, model.ActivityRecord) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Get(context.Context, string, string) (*Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Update(context.Context, string, string, model.ActivityRecord) error {
	return ErrUnavailable
}

func (Unavailable) Delete(context.Context, string, string) error {
	return ErrUnavailable
}

func (Unavailable) QueryByField(context.Context, string, string, string) ([]Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) All(context.Context, string) ([]Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) LoadGoals(context.Context, string) (json.RawMessage, error) {
	return nil, ErrUnavailable
}

func (Unavailable) SaveGoals(context.Context, string, json.RawMessage) error {
	return ErrUnavailable
}
