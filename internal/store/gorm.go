package store

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machine-service-backend/internal/model"
)

// gormStore implements Store over relational tables using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store. The machine_journeys and
// machine_records tables must already be migrated.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// LoadAll fetches every journey with its records in visit order.
func (s *gormStore) LoadAll(ctx context.Context) (map[string]*model.MachineJourney, error) {
	var journeys []model.MachineJourney
	err := s.db.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Find(&journeys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch machine journeys: %w", err)
	}

	journeyMap := make(map[string]*model.MachineJourney, len(journeys))
	for i := range journeys {
		j := &journeys[i]
		if j.CompletedWorkstations == nil {
			j.CompletedWorkstations = []int{}
		}
		if j.Records == nil {
			j.Records = []model.MachineRecord{}
		}
		journeyMap[j.BarcodeID] = j
	}
	return journeyMap, nil
}

// SaveAll upserts the given journeys and their records in one transaction.
// Records that are no longer part of a saved journey are removed.
func (s *gormStore) SaveAll(ctx context.Context, journeys map[string]*model.MachineJourney) error {
	if len(journeys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, barcode := range sortedKeys(journeys) {
			journey := journeys[barcode]
			if journey == nil {
				continue
			}
			journey.BarcodeID = barcode
			if err := upsertJourney(tx, journey); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertJourney(tx *gorm.DB, journey *model.MachineJourney) error {
	if journey.CompletedWorkstations == nil {
		journey.CompletedWorkstations = []int{}
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "barcode_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_workstation", "completed_workstations", "start_time", "end_time", "updated_at"}),
	}).Omit(clause.Associations).Create(journey).Error; err != nil {
		return fmt.Errorf("failed to upsert journey %s: %w", journey.BarcodeID, err)
	}

	keep := make([]string, 0, len(journey.Records))
	for i := range journey.Records {
		r := &journey.Records[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.TasksCompleted == nil {
			r.TasksCompleted = []string{}
		}
		r.BarcodeID = journey.BarcodeID
		r.Seq = i
		keep = append(keep, r.ID)
	}

	stale := tx.Where("barcode_id = ?", journey.BarcodeID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&model.MachineRecord{}).Error; err != nil {
		return fmt.Errorf("failed to prune records for %s: %w", journey.BarcodeID, err)
	}

	if len(journey.Records) == 0 {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"seq", "operator_name", "operator_epf", "workstation", "checkin_time",
			"checkout_time", "wait_time", "tasks_completed", "total_tasks",
		}),
	}).Create(&journey.Records).Error; err != nil {
		return fmt.Errorf("failed to upsert records for %s: %w", journey.BarcodeID, err)
	}
	return nil
}

// DeleteOne removes a journey and its records. The records are deleted
// explicitly so the cascade holds even where foreign keys are not enforced.
func (s *gormStore) DeleteOne(ctx context.Context, barcodeID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("barcode_id = ?", barcodeID).Delete(&model.MachineRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete records for %s: %w", barcodeID, err)
		}
		res := tx.Where("barcode_id = ?", barcodeID).Delete(&model.MachineJourney{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete journey %s: %w", barcodeID, res.Error)
		}
		if res.RowsAffected == 0 {
			log.Printf("Delete of machine %s matched no journey", barcodeID)
		}
		return nil
	})
}
