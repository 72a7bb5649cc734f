package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"machine-service-backend/internal/model"
)

var (
	// ErrDuplicate is returned when an operator with the same EPF number exists.
	ErrDuplicate = errors.New("operator already exists")
	// ErrNotFound is returned for unknown EPF numbers.
	ErrNotFound = errors.New("operator not found")
	// ErrInvalid is returned for blank names or EPF numbers.
	ErrInvalid = errors.New("operator name and EPF number are required")
)

// Roster manages the operators allowed to check machines in and out.
type Roster struct {
	db *gorm.DB
}

// New creates a roster over the operators table.
func New(db *gorm.DB) *Roster {
	return &Roster{db: db}
}

// List returns every operator ordered by name.
func (r *Roster) List(ctx context.Context) ([]model.Operator, error) {
	var operators []model.Operator
	if err := r.db.WithContext(ctx).Order("name ASC").Order("epf ASC").Find(&operators).Error; err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	return operators, nil
}

// Get looks an operator up by EPF number.
func (r *Roster) Get(ctx context.Context, epf string) (model.Operator, error) {
	var op model.Operator
	err := r.db.WithContext(ctx).First(&op, "epf = ?", strings.TrimSpace(epf)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Operator{}, fmt.Errorf("%w: EPF %s", ErrNotFound, epf)
	}
	if err != nil {
		return model.Operator{}, fmt.Errorf("failed to look up operator %s: %w", epf, err)
	}
	return op, nil
}

// Add registers a new operator. The EPF number must be unused.
func (r *Roster) Add(ctx context.Context, name, epf string) (model.Operator, error) {
	op := model.Operator{Name: strings.TrimSpace(name), EPF: strings.TrimSpace(epf)}
	if op.Name == "" || op.EPF == "" {
		return model.Operator{}, ErrInvalid
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Operator{}).Where("epf = ?", op.EPF).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: EPF %s", ErrDuplicate, op.EPF)
		}
		return tx.Create(&op).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return model.Operator{}, err
		}
		return model.Operator{}, fmt.Errorf("failed to add operator %s: %w", op.EPF, err)
	}
	log.Printf("Operator %s (%s) added", op.Name, op.EPF)
	return op, nil
}

// Delete removes an operator. Records already signed by the operator keep
// their copy of the name and EPF number.
func (r *Roster) Delete(ctx context.Context, epf string) error {
	res := r.db.WithContext(ctx).Where("epf = ?", strings.TrimSpace(epf)).Delete(&model.Operator{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete operator %s: %w", epf, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: EPF %s", ErrNotFound, epf)
	}
	log.Printf("Operator %s deleted", epf)
	return nil
}

// Seed inserts defaults when the roster is empty, and does nothing otherwise.
func (r *Roster) Seed(ctx context.Context, defaults []model.Operator) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Operator{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count operators: %w", err)
	}
	if count > 0 || len(defaults) == 0 {
		return nil
	}
	log.Printf("Seeding roster with %d default operators", len(defaults))
	if err := r.db.WithContext(ctx).Create(&defaults).Error; err != nil {
		return fmt.Errorf("failed to seed operators: %w", err)
	}
	return nil
}
