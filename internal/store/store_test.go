package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"machine-service-backend/internal/model"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.MachineJourney{}, &model.MachineRecord{}))
	return NewGormStore(db)
}

func newBadgerStore(t *testing.T) Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	s := NewBadgerStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func newFileStore(t *testing.T) Store {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "machineServiceDB.json"))
	require.NoError(t, err)
	return s
}

var backends = []struct {
	name string
	open func(t *testing.T) Store
}{
	{name: "sqlite", open: newSQLiteStore},
	{name: "badger", open: newBadgerStore},
	{name: "file", open: newFileStore},
}

func intPtr(v int) *int { return &v }

func sampleJourneys(now time.Time) map[string]*model.MachineJourney {
	wait := int64(900000)
	out := now.Add(20 * time.Minute)
	return map[string]*model.MachineJourney{
		"BC001": {
			BarcodeID:             "BC001",
			CurrentWorkstation:    intPtr(2),
			CompletedWorkstations: []int{1},
			StartTime:             now,
			Records: []model.MachineRecord{
				{
					ID:             "rec-1",
					BarcodeID:      "BC001",
					Operator:       model.OperatorRef{Name: "Alice", EPF: "100"},
					Workstation:    1,
					CheckinTime:    now,
					CheckoutTime:   &out,
					TasksCompleted: []string{"ws1_task1", "ws1_task2", "ws1_task3"},
					TotalTasks:     11,
				},
				{
					ID:             "rec-2",
					BarcodeID:      "BC001",
					Operator:       model.OperatorRef{Name: "Bob", EPF: "200"},
					Workstation:    2,
					CheckinTime:    out,
					WaitTime:       &wait,
					TasksCompleted: []string{},
				},
			},
		},
		"BC002": {
			BarcodeID:             "BC002",
			CompletedWorkstations: []int{1, 2, 3, 4, 5, 6},
			StartTime:             now,
			EndTime:               &out,
			Records:               []model.MachineRecord{},
		},
	}
}

func TestStoreContract(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			s := backend.open(t)

			empty, err := s.LoadAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, s.SaveAll(ctx, sampleJourneys(now)))

			loaded, err := s.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, loaded, 2)

			bc1 := loaded["BC001"]
			require.NotNil(t, bc1)
			require.NotNil(t, bc1.CurrentWorkstation)
			assert.Equal(t, 2, *bc1.CurrentWorkstation)
			assert.Equal(t, []int{1}, bc1.CompletedWorkstations)
			require.Len(t, bc1.Records, 2)
			assert.Equal(t, "rec-1", bc1.Records[0].ID)
			assert.Equal(t, "Alice", bc1.Records[0].Operator.Name)
			assert.Equal(t, []string{"ws1_task1", "ws1_task2", "ws1_task3"}, bc1.Records[0].TasksCompleted)
			assert.Equal(t, 11, bc1.Records[0].TotalTasks)
			assert.True(t, now.Equal(bc1.Records[0].CheckinTime))
			assert.Nil(t, bc1.Records[1].CheckoutTime)
			require.NotNil(t, bc1.Records[1].WaitTime)
			assert.Equal(t, int64(900000), *bc1.Records[1].WaitTime)

			bc2 := loaded["BC002"]
			require.NotNil(t, bc2)
			assert.Nil(t, bc2.CurrentWorkstation)
			require.NotNil(t, bc2.EndTime)
			assert.True(t, now.Add(20*time.Minute).Equal(*bc2.EndTime))

			// Upsert: checking BC001 out of station 2 touches only BC001.
			checkout := now.Add(45 * time.Minute)
			bc1.Records[1].CheckoutTime = &checkout
			bc1.Records[1].TasksCompleted = []string{"ws2_task1"}
			bc1.CurrentWorkstation = nil
			bc1.CompletedWorkstations = append(bc1.CompletedWorkstations, 2)
			require.NoError(t, s.SaveAll(ctx, map[string]*model.MachineJourney{"BC001": bc1}))

			loaded, err = s.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, loaded, 2)
			assert.Nil(t, loaded["BC001"].CurrentWorkstation)
			assert.Equal(t, []int{1, 2}, loaded["BC001"].CompletedWorkstations)
			require.NotNil(t, loaded["BC001"].Records[1].CheckoutTime)
			assert.Equal(t, []string{"ws2_task1"}, loaded["BC001"].Records[1].TasksCompleted)

			// Delete cascades to records and leaves others alone.
			require.NoError(t, s.DeleteOne(ctx, "BC001"))
			require.NoError(t, s.DeleteOne(ctx, "UNKNOWN"))

			loaded, err = s.LoadAll(ctx)
			require.NoError(t, err)
			assert.NotContains(t, loaded, "BC001")
			assert.Contains(t, loaded, "BC002")
		})
	}
}

func TestGormStore_DeleteCascadesRecords(t *testing.T) {
	ctx := context.Background()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	require.NoError(t, db.AutoMigrate(&model.MachineJourney{}, &model.MachineRecord{}))

	s := NewGormStore(db)
	require.NoError(t, s.SaveAll(ctx, sampleJourneys(time.Now().UTC())))

	var count int64
	db.Model(&model.MachineRecord{}).Where("barcode_id = ?", "BC001").Count(&count)
	assert.Equal(t, int64(2), count)

	require.NoError(t, s.DeleteOne(ctx, "BC001"))

	db.Model(&model.MachineRecord{}).Where("barcode_id = ?", "BC001").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGormStore_PrunesDroppedRecords(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	journeys := sampleJourneys(time.Now().UTC())
	require.NoError(t, s.SaveAll(ctx, journeys))

	bc1 := journeys["BC001"]
	bc1.Records = bc1.Records[:1]
	require.NoError(t, s.SaveAll(ctx, map[string]*model.MachineJourney{"BC001": bc1}))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded["BC001"].Records, 1)
	assert.Equal(t, "rec-1", loaded["BC001"].Records[0].ID)
}

func TestGormStore_AssignsRecordIDs(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	now := time.Now().UTC()

	journey := &model.MachineJourney{
		BarcodeID:          "BC009",
		CurrentWorkstation: intPtr(1),
		StartTime:          now,
		Records: []model.MachineRecord{
			{Workstation: 1, CheckinTime: now, Operator: model.OperatorRef{Name: "Jude", EPF: "938"}},
		},
	}
	require.NoError(t, s.SaveAll(ctx, map[string]*model.MachineJourney{"BC009": journey}))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded["BC009"].Records, 1)
	assert.NotEmpty(t, loaded["BC009"].Records[0].ID)
	assert.Equal(t, []int{}, loaded["BC009"].CompletedWorkstations)
}

func TestGormStore_DeleteOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "machine_records" WHERE barcode_id = $1`)).
		WithArgs("BC001").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "machine_journeys" WHERE barcode_id = $1`)).
		WithArgs("BC001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewGormStore(gormDB).DeleteOne(context.Background(), "BC001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_LoadFailureIsWrapped(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "machine_journeys"`)).
		WillReturnError(fmt.Errorf("connection refused"))

	_, err = NewGormStore(gormDB).LoadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileStore_CorruptDocumentIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loaded, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
