package recordstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps tables in process memory. It backs tests and local demos.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Record
	nextID map[string]int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: map[string][]Record{},
		nextID: map[string]int64{},
		now:    time.Now,
	}
}

// Seed inserts rows verbatim; rows without an id get the next one.
func (m *MemoryStore) Seed(table string, rows ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.insertLocked(table, row)
	}
}

func (m *MemoryStore) Fetch(ctx context.Context, table string, params FetchParams) (*Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	rows := m.tables[table]
	m.mu.RUnlock()

	data, total := Apply(rows, params)
	return &Envelope{Success: true, Data: data, Total: total}, nil
}

func (m *MemoryStore) Get(ctx context.Context, table string, id int64, fields []string) (*Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.tables[table] {
		if row.ID() == id {
			return &Envelope{Success: true, Data: []Record{row.Clone(fields...)}, Total: 1}, nil
		}
	}
	return &Envelope{Success: false, Message: fmt.Sprintf("record %d not found", id)}, nil
}

func (m *MemoryStore) Create(ctx context.Context, table string, records []Record) (*MutationEnvelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	env := &MutationEnvelope{Success: true, Results: make([]RecordResult, len(records))}
	for i, rec := range records {
		row := rec.Clone()
		delete(row, FieldID)
		stored := m.insertLocked(table, row)
		env.Results[i] = RecordResult{Success: true, Data: stored.Clone()}
	}
	return env, nil
}

func (m *MemoryStore) Update(ctx context.Context, table string, records []Record) (*MutationEnvelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	env := &MutationEnvelope{Results: make([]RecordResult, len(records))}
	failed := 0
	for i, rec := range records {
		idx := m.indexLocked(table, rec.ID())
		if idx < 0 {
			env.Results[i] = RecordResult{Message: fmt.Sprintf("record %d not found", rec.ID())}
			failed++
			continue
		}
		row := m.tables[table][idx].Clone()
		for k, v := range rec {
			row[k] = v
		}
		m.tables[table][idx] = row
		env.Results[i] = RecordResult{Success: true, Data: row.Clone()}
	}
	env.Success = failed == 0
	return env, nil
}

func (m *MemoryStore) Delete(ctx context.Context, table string, ids []int64) (*MutationEnvelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	env := &MutationEnvelope{Results: make([]RecordResult, len(ids))}
	failed := 0
	for i, id := range ids {
		idx := m.indexLocked(table, id)
		if idx < 0 {
			env.Results[i] = RecordResult{Message: fmt.Sprintf("record %d not found", id)}
			failed++
			continue
		}
		rows := m.tables[table]
		env.Results[i] = RecordResult{Success: true, Data: rows[idx].Clone()}
		m.tables[table] = append(rows[:idx:idx], rows[idx+1:]...)
	}
	env.Success = failed == 0
	return env, nil
}

func (m *MemoryStore) insertLocked(table string, row Record) Record {
	stored := row.Clone()
	id := stored.ID()
	if id == 0 {
		m.nextID[table]++
		id = m.nextID[table]
	} else if id > m.nextID[table] {
		m.nextID[table] = id
	}
	stored[FieldID] = id
	if !stored.Has("created_at") {
		stored["created_at"] = m.now().UTC().Format(time.RFC3339Nano)
	}
	m.tables[table] = append(m.tables[table], stored)
	return stored
}

func (m *MemoryStore) indexLocked(table string, id int64) int {
	for i, row := range m.tables[table] {
		if row.ID() == id {
			return i
		}
	}
	return -1
}
