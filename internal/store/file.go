package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"machine-service-backend/internal/backup"
	"machine-service-backend/internal/model"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps the whole database in a single JSON document, in the
// backup layout. Every operation holds an exclusive lock on a sidecar lock
// file so that several processes on one host can share the document.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore prepares a store at path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}, nil
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			log.Printf("Warning: failed to unlock %s: %v", s.lock.Path(), err)
		}
	}()
	return fn()
}

// read loads the document. A missing document is empty; an unreadable one is
// logged and treated as empty, which matches how a corrupt browser store was
// handled.
func (s *FileStore) read() (*backup.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return backup.New(s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, err := backup.Parse(data)
	if err != nil {
		log.Printf("Warning: discarding unreadable store document %s: %v", s.path, err)
		return backup.New(s.now()), nil
	}
	return doc, nil
}

func (s *FileStore) write(doc *backup.Document) error {
	doc.LastUpdated = s.now().UTC()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode store document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// LoadAll returns every journey in the document.
func (s *FileStore) LoadAll(ctx context.Context) (map[string]*model.MachineJourney, error) {
	var journeys map[string]*model.MachineJourney
	err := s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		journeys = doc.Machines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return journeys, nil
}

// SaveAll merges journeys into the document and rewrites it.
func (s *FileStore) SaveAll(ctx context.Context, journeys map[string]*model.MachineJourney) error {
	return s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		for barcode, journey := range journeys {
			if journey == nil {
				continue
			}
			journey.BarcodeID = barcode
			doc.Machines[barcode] = journey
		}
		return s.write(doc)
	})
}

// DeleteOne removes a journey from the document.
func (s *FileStore) DeleteOne(ctx context.Context, barcodeID string) error {
	return s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := doc.Machines[barcodeID]; !ok {
			return nil
		}
		delete(doc.Machines, barcodeID)
		return s.write(doc)
	})
}
