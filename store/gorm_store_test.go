package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"otoil-backend/models"
	"otoil-backend/testutil"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func sampleRecord(plate, customer string) *models.ServiceRecord {
	serviceDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	next := serviceDate.AddDate(0, 6, 0)
	return &models.ServiceRecord{
		CustomerName:    customer,
		Phone:           "0532 123 45 67",
		Plate:           plate,
		VehicleModel:    "Fiat Egea",
		ServiceDate:     serviceDate,
		WorkPerformed:   "Yağ ve filtre değişimi",
		Fee:             1500,
		NextServiceDate: &next,
	}
}

func TestGormStore_AddGetUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(testutil.PrepareDB(t))

	record := sampleRecord("34 ABC 123", "Ahmet Yılmaz")
	record.ID = "client-chosen"
	require.NoError(t, s.Add(ctx, record))
	assert.NotEqual(t, "client-chosen", record.ID)
	assert.False(t, record.CreatedAt.IsZero())

	got, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ahmet Yılmaz", got.CustomerName)
	assert.InDelta(t, 1500, got.Fee, 0.001)

	createdAt := got.CreatedAt
	edit := *got
	edit.CheckupNotes = "Fren balataları %30"
	edit.Fee = 0
	edit.CreatedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Update(ctx, &edit))

	assert.Equal(t, record.ID, edit.ID)
	assert.Equal(t, "Fren balataları %30", edit.CheckupNotes)
	assert.Zero(t, edit.Fee)
	assert.True(t, createdAt.Equal(edit.CreatedAt), "createdAt must be preserved")
}

func TestGormStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(testutil.PrepareDB(t))

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	err = s.Update(ctx, &models.ServiceRecord{ID: "missing", CustomerName: "x"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGormStore_ListNewestFirstAndSearch(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	s := NewGormStore(db)

	first := sampleRecord("34 ABC 123", "Ahmet Yılmaz")
	second := sampleRecord("06 XYZ 99", "Mehmet Demir")
	third := sampleRecord("35 ABD 7", "Ayşe Kaya")
	for _, r := range []*models.ServiceRecord{first, second, third} {
		require.NoError(t, s.Add(ctx, r))
	}
	// Spread creation times so the order does not depend on clock resolution.
	base := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	for i, r := range []*models.ServiceRecord{first, second, third} {
		require.NoError(t, db.Model(&models.ServiceRecord{}).Where("id = ?", r.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	byPlate, err := s.List(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, byPlate, 1)
	assert.Equal(t, first.ID, byPlate[0].ID)

	byName, err := s.List(ctx, "MEHMET")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, second.ID, byName[0].ID)
}

func TestGormStore_DeleteAllInBatches(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(testutil.PrepareDB(t))

	for i := 0; i < 7; i++ {
		require.NoError(t, s.Add(ctx, sampleRecord("34 TEST", "Müşteri")))
	}

	var progress []int
	deleted, err := s.DeleteAll(ctx, 3, func(n int) { progress = append(progress, n) })
	require.NoError(t, err)
	assert.Equal(t, 7, deleted)
	assert.Equal(t, []int{3, 6, 7}, progress)

	remaining, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestGormStore_ListWildcardsMatchLiterally(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(testutil.PrepareDB(t))

	require.NoError(t, s.Add(ctx, sampleRecord("34 ABC 123", "Ahmet Yılmaz")))
	require.NoError(t, s.Add(ctx, sampleRecord("06 XY 99", "Mehmet %50 İndirim")))
	require.NoError(t, s.Add(ctx, sampleRecord("35 AB_1", "Ayşe Kaya")))
	require.NoError(t, s.Add(ctx, sampleRecord(`16 A\B 7`, "Can Demir")))

	plates := func(q string) []string {
		records, err := s.List(ctx, q)
		require.NoError(t, err)
		out := make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.Plate)
		}
		return out
	}

	assert.Equal(t, []string{"06 XY 99"}, plates("%"))
	assert.Equal(t, []string{"35 AB_1"}, plates("_"))
	assert.Equal(t, []string{"35 AB_1"}, plates("b_1"))
	assert.Equal(t, []string{`16 A\B 7`}, plates(`\`))
	assert.Empty(t, plates("a%c"))
}

func TestGormStore_ListQuery(t *testing.T) {
	db, mock := newTestDB(t)
	s := NewGormStore(db)

	mock.ExpectQuery(`SELECT \* FROM "service_records" WHERE .*LOWER\(plate\) LIKE \$1 ESCAPE '\\' OR LOWER\(customer_name\) LIKE \$2 ESCAPE '\\'.* ORDER BY created_at DESC`).
		WithArgs(`%34 abc\_%`, `%34 abc\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plate", "customer_name"}).
			AddRow("r1", "34 ABC 123", "Ahmet"))

	records, err := s.List(context.Background(), " 34 ABC_ ")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
