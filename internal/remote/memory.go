package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// Memory is an in-process Store for development mode and tests. Failures
// can be injected globally or per operation.
type Memory struct {
	mu      sync.Mutex
	seq     int
	docs    map[string]map[string]Document
	goals   map[string]json.RawMessage
	failAll error
	failOp  map[string]error
	calls   map[string]int
	now     func() time.Time
}

// Operation names accepted by FailOn and Calls.
const (
	OpCreate    = "create"
	OpGet       = "get"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpQuery     = "query"
	OpAll       = "all"
	OpLoadGoals = "loadGoals"
	OpSaveGoals = "saveGoals"
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:   map[string]map[string]Document{},
		goals:  map[string]json.RawMessage{},
		failOp: map[string]error{},
		calls:  map[string]int{},
		now:    time.Now,
	}
}

// FailAll makes every operation return err. Pass nil to recover.
func (m *Memory) FailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

// FailOn makes a single operation return err. Pass nil to recover.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failOp, op)
		return
	}
	m.failOp[op] = err
}

// Calls reports how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Put stores a document under a caller-chosen id, for seeding tests.
func (m *Memory) Put(userID, docID string, rec model.ActivityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.RemoteID = ""
	m.userDocs(userID)[docID] = Document{ID: docID, Record: rec, CreatedAt: m.now()}
}

// begin records the call and returns any injected failure. Callers hold mu.
func (m *Memory) begin(op string) error {
	m.calls[op]++
	if m.failAll != nil {
		return m.failAll
	}
	return m.failOp[op]
}

func (m *Memory) userDocs(userID string) map[string]Document {
	docs, ok := m.docs[userID]
	if !ok {
		docs = map[string]Document{}
		m.docs[userID] = docs
	}
	return docs
}

func (m *Memory) Create(_ context.Context, userID string, rec model.ActivityRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCreate); err != nil {
		return "", err
	}

	m.seq++
	id := fmt.Sprintf("doc-%d", m.seq)
	rec.RemoteID = ""
	m.userDocs(userID)[id] = Document{ID: id, Record: rec, CreatedAt: m.now()}
	return id, nil
}

func (m *Memory) Get(_ context.Context, userID, docID string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGet); err != nil {
		return nil, err
	}

	doc, ok := m.userDocs(userID)[docID]
	if !ok {
		return nil, ErrNotFound
	}
	doc.Record.RemoteID = doc.ID
	return &doc, nil
}

func (m *Memory) Update(_ context.Context, userID, docID string, rec model.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpUpdate); err != nil {
		return err
	}

	docs := m.userDocs(userID)
	doc, ok := docs[docID]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergeRecord(doc.Record, rec)
	if err != nil {
		return err
	}
	doc.Record = merged
	docs[docID] = doc
	return nil
}

func (m *Memory) Delete(_ context.Context, userID, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDelete); err != nil {
		return err
	}

	docs := m.userDocs(userID)
	if _, ok := docs[docID]; !ok {
		return ErrNotFound
	}
	delete(docs, docID)
	return nil
}

func (m *Memory) QueryByField(_ context.Context, userID, field, value string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpQuery); err != nil {
		return nil, err
	}

	var out []Document
	for _, doc := range m.userDocs(userID) {
		if fieldValue(doc.Record, field) == value {
			doc.Record.RemoteID = doc.ID
			out = append(out, doc)
		}
	}
	sortDocs(out)
	return out, nil
}

func (m *Memory) All(_ context.Context, userID string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpAll); err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(m.userDocs(userID)))
	for _, doc := range m.userDocs(userID) {
		doc.Record.RemoteID = doc.ID
		out = append(out, doc)
	}
	sortDocs(out)
	return out, nil
}

func (m *Memory) LoadGoals(_ context.Context, userID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpLoadGoals); err != nil {
		return nil, err
	}

	raw, ok := m.goals[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), raw...), nil
}

func (m *Memory) SaveGoals(_ context.Context, userID string, goals json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpSaveGoals); err != nil {
		return err
	}

	m.goals[userID] = append(json.RawMessage(nil), goals...)
	return nil
}

func fieldValue(rec model.ActivityRecord, field string) string {
	switch field {
	case FieldID:
		return rec.ID
	case FieldDate:
		return rec.Date
	case FieldTitle:
		return rec.Title
	}
	return ""
}

// sortDocs orders by creation time, then id, so results are deterministic.
func sortDocs(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

// mergeRecord overlays update's top-level JSON fields onto existing, the
// same shallow merge the Postgres store performs with jsonb ||.
func mergeRecord(existing, update model.ActivityRecord) (model.ActivityRecord, error) {
	base, err := recordFields(existing)
	if err != nil {
		return existing, err
	}
	patch, err := recordFields(update)
	if err != nil {
		return existing, err
	}
	for k, v := range patch {
		base[k] = v
	}

	data, err := json.Marshal(base)
	if err != nil {
		return existing, fmt.Errorf("encoding merged record: %w", err)
	}
	var out model.ActivityRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return existing, fmt.Errorf("decoding merged record: %w", err)
	}
	return out, nil
}

// recordFields encodes rec as a JSON object without its RemoteID, which is
// never stored inside the document.
func recordFields(rec model.ActivityRecord) (map[string]json.RawMessage, error) {
	rec.RemoteID = ""
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding record fields: %w", err)
	}
	return fields, nil
}
