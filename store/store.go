package store

import (
	"context"
	"errors"

	"otoil-backend/models"
)

var ErrRecordNotFound = errors.New("service record not found")

// DeleteBatchSize is how many records the purge removes per round trip.
const DeleteBatchSize = 500

// RecordStore is the shop-wide collection of service records.
type RecordStore interface {
	// List returns every record, newest first. A non-empty query keeps only
	// records whose plate or customer name contains it, ignoring case.
	List(ctx context.Context, query string) ([]models.ServiceRecord, error)
	Get(ctx context.Context, id string) (*models.ServiceRecord, error)
	// Add assigns the id and creation time before storing the record.
	Add(ctx context.Context, record *models.ServiceRecord) error
	// Update overwrites the editable fields, keeping id and creation time.
	Update(ctx context.Context, record *models.ServiceRecord) error
	// DeleteAll removes every record in batches and reports the running total.
	DeleteAll(ctx context.Context, batchSize int, progress func(deleted int)) (int, error)
}
