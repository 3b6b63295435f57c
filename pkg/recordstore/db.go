package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/logger"
)

const backendDB = "db"

// recordRow stores one record as a JSON document keyed by collection (table name).
type recordRow struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Collection string    `gorm:"column:collection;not null;index"`
	Data       string    `gorm:"column:data;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (recordRow) TableName() string { return "records" }

// DBStore implements Store on top of the service's own database.
type DBStore struct {
	db       *gorm.DB
	logg     *logger.Logger
	observer Observer
}

// NewDBStore wraps db. The records table must exist (see pkg/migrate).
func NewDBStore(db *gorm.DB, logg *logger.Logger, obs Observer) (*DBStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &DBStore{db: db, logg: logg, observer: obs}, nil
}

func (s *DBStore) Fetch(ctx context.Context, table string, params FetchParams) (*Envelope, error) {
	var env *Envelope
	err := s.observe("fetch", func() error {
		var rows []recordRow
		if err := s.db.WithContext(ctx).
			Where("collection = ?", table).
			Order("id ASC").
			Find(&rows).Error; err != nil {
			return fmt.Errorf("fetch %s: %w", table, err)
		}

		records := make([]Record, 0, len(rows))
		for _, row := range rows {
			rec, err := row.record()
			if err != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"collection": table,
					"record_id":  row.ID,
					"error":      err.Error(),
				}), "skipping undecodable record")
				continue
			}
			records = append(records, rec)
		}
		data, total := Apply(records, params)
		env = &Envelope{Success: true, Data: data, Total: total}
		return nil
	})
	return env, err
}

func (s *DBStore) Get(ctx context.Context, table string, id int64, fields []string) (*Envelope, error) {
	var env *Envelope
	err := s.observe("get", func() error {
		var row recordRow
		err := s.db.WithContext(ctx).
			Where("collection = ? AND id = ?", table, id).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			env = &Envelope{Success: false, Message: fmt.Sprintf("record %d not found", id)}
			return nil
		}
		if err != nil {
			return fmt.Errorf("get %s/%d: %w", table, id, err)
		}
		rec, err := row.record()
		if err != nil {
			return err
		}
		env = &Envelope{Success: true, Data: []Record{rec.Clone(fields...)}, Total: 1}
		return nil
	})
	return env, err
}

// Create inserts each record on its own; a failed row does not undo the others.
func (s *DBStore) Create(ctx context.Context, table string, records []Record) (*MutationEnvelope, error) {
	var env *MutationEnvelope
	err := s.observe("create", func() error {
		env = &MutationEnvelope{Results: make([]RecordResult, len(records))}
		failed := 0
		for i, rec := range records {
			result, err := s.insert(ctx, table, rec)
			if err != nil {
				env.Results[i] = RecordResult{Message: err.Error()}
				failed++
				continue
			}
			env.Results[i] = RecordResult{Success: true, Data: result}
		}
		env.Success = failed == 0
		if failed > 0 {
			env.Message = fmt.Sprintf("%d of %d records failed", failed, len(records))
		}
		return nil
	})
	return env, err
}

func (s *DBStore) Update(ctx context.Context, table string, records []Record) (*MutationEnvelope, error) {
	var env *MutationEnvelope
	err := s.observe("update", func() error {
		env = &MutationEnvelope{Results: make([]RecordResult, len(records))}
		failed := 0
		for i, rec := range records {
			result, err := s.merge(ctx, table, rec)
			if err != nil {
				env.Results[i] = RecordResult{Message: err.Error()}
				failed++
				continue
			}
			env.Results[i] = RecordResult{Success: true, Data: result}
		}
		env.Success = failed == 0
		if failed > 0 {
			env.Message = fmt.Sprintf("%d of %d records failed", failed, len(records))
		}
		return nil
	})
	return env, err
}

// Delete removes each id on its own and returns the deleted documents.
func (s *DBStore) Delete(ctx context.Context, table string, ids []int64) (*MutationEnvelope, error) {
	var env *MutationEnvelope
	err := s.observe("delete", func() error {
		env = &MutationEnvelope{Results: make([]RecordResult, len(ids))}
		failed := 0
		for i, id := range ids {
			result, err := s.remove(ctx, table, id)
			if err != nil {
				env.Results[i] = RecordResult{Message: err.Error()}
				failed++
				continue
			}
			env.Results[i] = RecordResult{Success: true, Data: result}
		}
		env.Success = failed == 0
		if failed > 0 {
			env.Message = fmt.Sprintf("%d of %d records failed", failed, len(ids))
		}
		return nil
	})
	return env, err
}

func (s *DBStore) insert(ctx context.Context, table string, rec Record) (Record, error) {
	doc := rec.Clone()
	delete(doc, FieldID)
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	row := recordRow{Collection: table, Data: string(payload)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	return row.record()
}

// merge overlays rec onto the stored document inside one transaction.
func (s *DBStore) merge(ctx context.Context, table string, rec Record) (Record, error) {
	id := rec.ID()
	if id == 0 {
		return nil, fmt.Errorf("record id required")
	}

	var row recordRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("collection = ? AND id = ?", table, id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("record %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("load %d: %w", id, err)
		}

		current, err := row.record()
		if err != nil {
			return err
		}
		for k, v := range rec {
			current[k] = v
		}
		delete(current, FieldID)
		delete(current, "created_at")

		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if err := tx.Model(&row).Update("data", string(payload)).Error; err != nil {
			return fmt.Errorf("update %d: %w", id, err)
		}
		row.Data = string(payload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.record()
}

func (s *DBStore) remove(ctx context.Context, table string, id int64) (Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("collection = ? AND id = ?", table, id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("record %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("load %d: %w", id, err)
		}
		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("delete %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rec, err := row.record()
	if err != nil {
		return Record{FieldID: id}, nil
	}
	return rec, nil
}

func (s *DBStore) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.observer.ObserveRecordStore(backendDB, op, time.Since(start), err)
	return err
}

func (r recordRow) record() (Record, error) {
	rec := Record{}
	dec := json.NewDecoder(bytes.NewReader([]byte(r.Data)))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", r.ID, err)
	}
	rec[FieldID] = r.ID
	if !r.CreatedAt.IsZero() {
		rec["created_at"] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return rec, nil
}
