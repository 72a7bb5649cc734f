package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"machine-service-backend/internal/model"
)

const badgerKeyPrefix = "machine:"

// BadgerStore keeps one JSON value per journey in an embedded badger database.
// SaveAll goes through a write batch, so a failure part way through can leave
// some journeys written and others not.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database in dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func badgerKey(barcodeID string) []byte {
	return []byte(badgerKeyPrefix + barcodeID)
}

// LoadAll scans every journey key.
func (s *BadgerStore) LoadAll(ctx context.Context) (map[string]*model.MachineJourney, error) {
	journeys := make(map[string]*model.MachineJourney)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var journey model.MachineJourney
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &journey)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			journeys[journey.BarcodeID] = &journey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load machine journeys: %w", err)
	}
	return journeys, nil
}

// SaveAll writes each journey under its own key.
func (s *BadgerStore) SaveAll(ctx context.Context, journeys map[string]*model.MachineJourney) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, barcode := range sortedKeys(journeys) {
		if err := ctx.Err(); err != nil {
			return err
		}
		journey := journeys[barcode]
		if journey == nil {
			continue
		}
		journey.BarcodeID = barcode
		data, err := json.Marshal(journey)
		if err != nil {
			return fmt.Errorf("encode journey %s: %w", barcode, err)
		}
		if err := wb.Set(badgerKey(barcode), data); err != nil {
			return fmt.Errorf("write journey %s: %w", barcode, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush journeys: %w", err)
	}
	return nil
}

// DeleteOne removes the journey; its records live inside the same value.
func (s *BadgerStore) DeleteOne(ctx context.Context, barcodeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(barcodeID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete journey %s: %w", barcodeID, err)
	}
	return nil
}
