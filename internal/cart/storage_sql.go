package cart

import (
	"context"
	"errors"
	"time"

	"github.com/amaiabotanic/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStorage keeps snapshots in the cart_snapshots table.
type SQLStorage struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLStorage(db *gorm.DB) *SQLStorage {
	return &SQLStorage{db: db, now: time.Now}
}

func (s *SQLStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var row models.CartSnapshot
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Payload), nil
}

func (s *SQLStorage) Save(ctx context.Context, key string, data []byte) error {
	row := models.CartSnapshot{
		StorageKey: key,
		Payload:    string(data),
		UpdatedAt:  s.now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

// PurgeBefore deletes snapshots last written before cutoff.
func (s *SQLStorage) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", cutoff.UTC()).Delete(&models.CartSnapshot{})
	return res.RowsAffected, res.Error
}
