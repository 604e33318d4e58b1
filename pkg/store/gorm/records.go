package gorm

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"

	"github.com/quizdesk/quizdesk/pkg/model"
	"github.com/quizdesk/quizdesk/pkg/store"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var (
	_ store.RecordStore = (*RecordStore)(nil)
	_ store.HealthStore = (*RecordStore)(nil)
)

// RecordStore implements store.RecordStore using GORM
type RecordStore struct {
	db *gorm.DB
}

// NewRecordStore creates a new RecordStore
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) query(ctx context.Context, f store.Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.Record{})
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.Username != "" {
		q = q.Where("username = ?", f.Username)
	}
	if f.LastEphemeralID != "" {
		q = q.Where("last_ephemeral_id = ?", f.LastEphemeralID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	return q.Order("created_at, id")
}

// FindOne returns the oldest record matching filter, or nil.
func (s *RecordStore) FindOne(ctx context.Context, filter store.Filter) (*model.Record, error) {
	var records []model.Record
	if err := s.query(ctx, filter).Limit(1).Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	if err := records[0].Validate(); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// FindMany returns every record matching filter, oldest first.
func (s *RecordStore) FindMany(ctx context.Context, filter store.Filter) ([]model.Record, error) {
	var records []model.Record
	if err := s.query(ctx, filter).Find(&records).Error; err != nil {
		return nil, err
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Insert creates rec inside a transaction that first checks for an active
// record holding the same username.
func (s *RecordStore) Insert(ctx context.Context, rec model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec.IsActive {
			var count int64
			err := tx.Model(&model.Record{}).
				Where("username = ? AND is_active = ?", rec.Username, true).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return store.ErrConflict
			}
		}
		return tx.Create(&rec).Error
	})
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

// Merge applies patch to the record with id.
func (s *RecordStore) Merge(ctx context.Context, id string, patch store.Patch) error {
	if patch.Empty() {
		return nil
	}

	tx := s.db.WithContext(ctx).Model(&model.Record{}).Where("id = ?", id).Updates(columns(patch))
	if isUniqueViolation(tx.Error) {
		return store.ErrConflict
	}
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CheckConnectivity verifies database connectivity
func (s *RecordStore) CheckConnectivity(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}

func columns(p store.Patch) map[string]interface{} {
	cols := map[string]interface{}{}
	if p.DisplayName != nil {
		cols["display_name"] = *p.DisplayName
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	if p.LastLoginAt != nil {
		cols["last_login_at"] = *p.LastLoginAt
	}
	if p.LastEphemeralID != nil {
		cols["last_ephemeral_id"] = *p.LastEphemeralID
	}
	return cols
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
