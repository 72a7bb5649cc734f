package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"machine-service-backend/internal/model"
)

// ErrInvalidDocument is returned when a backup lacks a required key or is not JSON.
var ErrInvalidDocument = errors.New("invalid backup document")

// Document is the whole-database backup format. It is also the on-disk
// layout of the file store.
type Document struct {
	Machines    map[string]*model.MachineJourney `json:"machines"`
	LastUpdated time.Time                        `json:"lastUpdated"`
}

// New returns an empty document stamped with now.
func New(now time.Time) *Document {
	return &Document{
		Machines:    make(map[string]*model.MachineJourney),
		LastUpdated: now.UTC(),
	}
}

// Decode reads a backup document. Only the presence of the "machines" and
// "lastUpdated" keys is checked; the journeys themselves are taken as-is.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return Parse(data)
}

// Parse is Decode over an in-memory payload.
func Parse(data []byte) (*Document, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for _, required := range []string{"machines", "lastUpdated"} {
		if _, ok := keys[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrInvalidDocument, required)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Machines == nil {
		doc.Machines = make(map[string]*model.MachineJourney)
	}
	for barcode, journey := range doc.Machines {
		if journey == nil {
			delete(doc.Machines, barcode)
			continue
		}
		// The map key is authoritative.
		journey.BarcodeID = barcode
	}
	return &doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}
