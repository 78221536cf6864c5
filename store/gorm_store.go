package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"otoil-backend/models"
)

var editableColumns = []string{
	"customer_name", "phone", "plate", "vehicle_model", "service_date",
	"work_performed", "checkup_notes", "fee", "staff_name", "next_service_date",
}

// GormStore keeps service records in the SQL database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *GormStore) List(ctx context.Context, query string) ([]models.ServiceRecord, error) {
	tx := s.db.WithContext(ctx).Order("created_at DESC")
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		tx = tx.Where(`LOWER(plate) LIKE ? ESCAPE '\' OR LOWER(customer_name) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	var records []models.ServiceRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.ServiceRecord, error) {
	var record models.ServiceRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) Add(ctx context.Context, record *models.ServiceRecord) error {
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *GormStore) Update(ctx context.Context, record *models.ServiceRecord) error {
	result := s.db.WithContext(ctx).
		Model(&models.ServiceRecord{ID: record.ID}).
		Select(editableColumns).
		Updates(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	stored, err := s.Get(ctx, record.ID)
	if err != nil {
		return err
	}
	*record = *stored
	return nil
}

func (s *GormStore) DeleteAll(ctx context.Context, batchSize int, progress func(deleted int)) (int, error) {
	if batchSize <= 0 {
		batchSize = DeleteBatchSize
	}
	total := 0
	for {
		var ids []string
		if err := s.db.WithContext(ctx).
			Model(&models.ServiceRecord{}).
			Limit(batchSize).
			Pluck("id", &ids).Error; err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ServiceRecord{})
		if result.Error != nil {
			return total, result.Error
		}
		total += int(result.RowsAffected)
		if progress != nil {
			progress(total)
		}
	}
}
