package store

import (
	"context"
	"sort"

	"machine-service-backend/internal/model"
)

// Store persists machine journeys keyed by barcode.
//
// SaveAll has upsert semantics: journeys in the map are written, journeys not
// in the map are left alone, and the last write wins. No backend offers an
// optimistic concurrency token.
type Store interface {
	LoadAll(ctx context.Context) (map[string]*model.MachineJourney, error)
	SaveAll(ctx context.Context, journeys map[string]*model.MachineJourney) error
	DeleteOne(ctx context.Context, barcodeID string) error
}

// sortedKeys returns the barcodes of journeys in a stable order so that
// backends write in the same order on every call.
func sortedKeys(journeys map[string]*model.MachineJourney) []string {
	keys := make([]string, 0, len(journeys))
	for k := range journeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
