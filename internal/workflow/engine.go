package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"machine-service-backend/internal/backup"
	"machine-service-backend/internal/model"
	"machine-service-backend/internal/station"
	"machine-service-backend/internal/store"
)

// Options configures an Engine.
type Options struct {
	// WaitEstimator defaults to FixedWaitEstimator(DefaultWaitPerMachine).
	WaitEstimator WaitEstimator
	// EnforceSequence makes CheckIn reject a station whose predecessor has not
	// been completed. When false the gate is left to the caller.
	EnforceSequence bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine sequences machines through the workstations. Operations on one
// Engine are serialised; writers in other processes sharing the same store
// are not coordinated.
type Engine struct {
	store store.Store
	opts  Options
	mu    sync.Mutex
}

// NewEngine creates an engine over s.
func NewEngine(s store.Store, opts Options) *Engine {
	if opts.WaitEstimator == nil {
		opts.WaitEstimator = FixedWaitEstimator(DefaultWaitPerMachine)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{store: s, opts: opts}
}

// Timestamps are kept at millisecond precision, which every backend and the
// backup format preserve exactly.
func (e *Engine) now() time.Time {
	return e.opts.Now().UTC().Truncate(time.Millisecond)
}

// CheckInResult is the outcome of a successful check-in.
type CheckInResult struct {
	IsNew    bool   `json:"isNew"`
	WaitTime *int64 `json:"waitTime"` // milliseconds
}

// QueueEntry is a machine waiting at, or being served by, a workstation.
type QueueEntry struct {
	BarcodeID   string            `json:"barcodeId"`
	CheckinTime time.Time         `json:"checkinTime"`
	WaitTime    *int64            `json:"waitTime"` // milliseconds
	Operator    model.OperatorRef `json:"operator"`
}

// CompletedMachine summarises a journey that has left the final station.
type CompletedMachine struct {
	BarcodeID             string                `json:"barcodeId"`
	StartTime             time.Time             `json:"startTime"`
	EndTime               time.Time             `json:"endTime"`
	TotalDuration         time.Duration         `json:"-"`
	CompletedWorkstations []int                 `json:"completedWorkstations"`
	Records               []model.MachineRecord `json:"records"`
}

// MarshalJSON reports TotalDuration in milliseconds, like every other
// duration on the wire.
func (m CompletedMachine) MarshalJSON() ([]byte, error) {
	type plain CompletedMachine
	return json.Marshal(struct {
		plain
		TotalDuration int64 `json:"totalDuration"`
	}{plain(m), m.TotalDuration.Milliseconds()})
}

func (e *Engine) loadAll(ctx context.Context) (map[string]*model.MachineJourney, error) {
	journeys, err := e.store.LoadAll(ctx)
	if err != nil {
		log.Printf("Error loading machine journeys: %v", err)
		return nil, fmt.Errorf("load machines: %w", err)
	}
	return journeys, nil
}

func (e *Engine) save(ctx context.Context, journey *model.MachineJourney) error {
	if err := e.store.SaveAll(ctx, map[string]*model.MachineJourney{journey.BarcodeID: journey}); err != nil {
		log.Printf("Error saving machine %s: %v", journey.BarcodeID, err)
		return fmt.Errorf("save machine %s: %w", journey.BarcodeID, err)
	}
	return nil
}

func validateStation(workstation int) error {
	if !station.Valid(workstation) {
		return fmt.Errorf("%w: workstation %d is not between 1 and %d", ErrValidation, workstation, station.Count)
	}
	return nil
}

// CheckIn places a machine at workstation, creating its journey on first
// sight. It fails with a *ConflictError, and changes nothing, when the machine
// is already checked in somewhere.
func (e *Engine) CheckIn(ctx context.Context, barcodeID string, workstation int, operator model.OperatorRef) (CheckInResult, error) {
	barcodeID = strings.TrimSpace(barcodeID)
	if barcodeID == "" {
		return CheckInResult{}, fmt.Errorf("%w: barcode is required", ErrValidation)
	}
	if err := validateStation(workstation); err != nil {
		return CheckInResult{}, err
	}
	if strings.TrimSpace(operator.EPF) == "" {
		return CheckInResult{}, fmt.Errorf("%w: operator is required", ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	journeys, err := e.loadAll(ctx)
	if err != nil {
		return CheckInResult{}, err
	}

	now := e.now()
	journey, exists := journeys[barcodeID]
	if exists && journey.CurrentWorkstation != nil {
		return CheckInResult{}, &ConflictError{BarcodeID: barcodeID, Workstation: *journey.CurrentWorkstation}
	}
	if e.opts.EnforceSequence {
		if err := RequirePredecessor(barcodeID, journey, workstation); err != nil {
			return CheckInResult{}, err
		}
	}

	result := CheckInResult{}
	if !exists {
		journey = &model.MachineJourney{
			BarcodeID:             barcodeID,
			CompletedWorkstations: []int{},
			Records:               []model.MachineRecord{},
			StartTime:             now,
		}
		result.IsNew = true
	}

	queued := 0
	for barcode, other := range journeys {
		if barcode == barcodeID || other.CurrentWorkstation == nil {
			continue
		}
		if *other.CurrentWorkstation == workstation {
			queued++
		}
	}
	result.WaitTime = model.WaitMillis(e.opts.WaitEstimator(queued))

	ws := workstation
	journey.CurrentWorkstation = &ws
	journey.Records = append(journey.Records, model.MachineRecord{
		ID:             uuid.NewString(),
		BarcodeID:      barcodeID,
		Operator:       operator,
		Workstation:    workstation,
		CheckinTime:    now,
		WaitTime:       result.WaitTime,
		TasksCompleted: []string{},
	})

	if err := e.save(ctx, journey); err != nil {
		return CheckInResult{}, err
	}
	log.Printf("Machine %s checked in to workstation %d by %s (%d ahead)", barcodeID, workstation, operator.EPF, queued)
	return result, nil
}

// CheckOut closes the machine's open record at workstation. Task lists are
// taken as given; partial or empty checklists are accepted. Checking out of
// the final station completes the journey.
func (e *Engine) CheckOut(ctx context.Context, barcodeID string, workstation int, tasksCompleted []string, totalTasks int) error {
	barcodeID = strings.TrimSpace(barcodeID)
	if err := validateStation(workstation); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	journeys, err := e.loadAll(ctx)
	if err != nil {
		return err
	}

	journey, exists := journeys[barcodeID]
	if !exists || journey.CurrentWorkstation == nil || *journey.CurrentWorkstation != workstation {
		return fmt.Errorf("%w: machine %s is not checked in to workstation %d", ErrNotFound, barcodeID, workstation)
	}
	record := journey.OpenRecord(workstation)
	if record == nil {
		return fmt.Errorf("%w: no active record for machine %s in workstation %d", ErrNotFound, barcodeID, workstation)
	}

	now := e.now()
	record.CheckoutTime = &now
	record.TasksCompleted = append([]string{}, tasksCompleted...)
	record.TotalTasks = totalTasks

	journey.CompletedWorkstations = append(journey.CompletedWorkstations, workstation)
	journey.CurrentWorkstation = nil
	if workstation == station.FinalStation {
		end := now
		journey.EndTime = &end
	}

	if err := e.save(ctx, journey); err != nil {
		return err
	}
	log.Printf("Machine %s checked out of workstation %d (%d/%d tasks)", barcodeID, workstation, len(tasksCompleted), totalTasks)
	return nil
}

// Queue lists the machines currently at workstation, oldest check-in first.
// Machines with identical check-in instants fall back to barcode order. The
// store keeps no insertion order, so barcode order only stands in for it to
// keep ties deterministic; it carries no meaning for the shop floor.
func (e *Engine) Queue(ctx context.Context, workstation int) ([]QueueEntry, error) {
	if err := validateStation(workstation); err != nil {
		return nil, err
	}

	journeys, err := e.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	barcodes := make([]string, 0, len(journeys))
	for barcode := range journeys {
		barcodes = append(barcodes, barcode)
	}
	sort.Strings(barcodes)

	entries := make([]QueueEntry, 0)
	for _, barcode := range barcodes {
		journey := journeys[barcode]
		if journey.CurrentWorkstation == nil || *journey.CurrentWorkstation != workstation {
			continue
		}
		entry := QueueEntry{BarcodeID: barcode}
		if record := journey.OpenRecord(workstation); record != nil {
			entry.CheckinTime = record.CheckinTime
			entry.WaitTime = record.WaitTime
			entry.Operator = record.Operator
		} else {
			log.Printf("Warning: machine %s is at workstation %d without an open record", barcode, workstation)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CheckinTime.Before(entries[j].CheckinTime)
	})
	return entries, nil
}

// Journey returns the full journey of a machine.
func (e *Engine) Journey(ctx context.Context, barcodeID string) (*model.MachineJourney, error) {
	journeys, err := e.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	journey, ok := journeys[strings.TrimSpace(barcodeID)]
	if !ok {
		return nil, fmt.Errorf("%w: machine %s", ErrNotFound, barcodeID)
	}
	return journey, nil
}

// CompletedJourneys returns the journeys whose end time lies in [start, end],
// both bounds inclusive, ordered by end time. Callers widen end themselves
// when they mean a whole day.
func (e *Engine) CompletedJourneys(ctx context.Context, start, end time.Time) ([]*model.MachineJourney, error) {
	journeys, err := e.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.MachineJourney, 0)
	for _, journey := range journeys {
		if journey.EndTime == nil {
			continue
		}
		if journey.EndTime.Before(start) || journey.EndTime.After(end) {
			continue
		}
		out = append(out, journey)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndTime.Equal(*out[j].EndTime) {
			return out[i].BarcodeID < out[j].BarcodeID
		}
		return out[i].EndTime.Before(*out[j].EndTime)
	})
	return out, nil
}

// CompletedMachines is CompletedJourneys reduced to report summaries.
func (e *Engine) CompletedMachines(ctx context.Context, start, end time.Time) ([]CompletedMachine, error) {
	journeys, err := e.CompletedJourneys(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]CompletedMachine, 0, len(journeys))
	for _, j := range journeys {
		out = append(out, CompletedMachine{
			BarcodeID:             j.BarcodeID,
			StartTime:             j.StartTime,
			EndTime:               *j.EndTime,
			TotalDuration:         j.Duration(),
			CompletedWorkstations: j.CompletedWorkstations,
			Records:               j.Records,
		})
	}
	return out, nil
}

// DeleteMachine removes a machine's journey and its records for good.
func (e *Engine) DeleteMachine(ctx context.Context, barcodeID string) error {
	barcodeID = strings.TrimSpace(barcodeID)

	e.mu.Lock()
	defer e.mu.Unlock()

	journeys, err := e.loadAll(ctx)
	if err != nil {
		return err
	}
	if _, ok := journeys[barcodeID]; !ok {
		return fmt.Errorf("%w: machine %s", ErrNotFound, barcodeID)
	}
	if err := e.store.DeleteOne(ctx, barcodeID); err != nil {
		log.Printf("Error deleting machine %s: %v", barcodeID, err)
		return fmt.Errorf("delete machine %s: %w", barcodeID, err)
	}
	log.Printf("Machine %s deleted", barcodeID)
	return nil
}

// ExportDatabase snapshots every journey into a backup document.
func (e *Engine) ExportDatabase(ctx context.Context) (*backup.Document, error) {
	journeys, err := e.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	doc := backup.New(e.now())
	doc.Machines = journeys
	return doc, nil
}

// ImportDatabase replaces the store contents with doc. Journeys absent from
// doc are deleted first. A failure part way through is not rolled back.
func (e *Engine) ImportDatabase(ctx context.Context, doc *backup.Document) error {
	if doc == nil || doc.Machines == nil {
		return fmt.Errorf("%w: backup has no machines", ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.loadAll(ctx)
	if err != nil {
		return err
	}
	for barcode := range existing {
		if _, keep := doc.Machines[barcode]; keep {
			continue
		}
		if err := e.store.DeleteOne(ctx, barcode); err != nil {
			return fmt.Errorf("import: delete machine %s: %w", barcode, err)
		}
	}
	if err := e.store.SaveAll(ctx, doc.Machines); err != nil {
		log.Printf("Error importing %d machines: %v", len(doc.Machines), err)
		return fmt.Errorf("import: save machines: %w", err)
	}
	log.Printf("Imported %d machines (backup from %s)", len(doc.Machines), doc.LastUpdated.Format(time.RFC3339))
	return nil
}

// RequirePredecessor is the station ordering gate: station 1 is always open,
// station N needs station N-1 in the journey's completed list. journey may be
// nil for a machine that has never been seen.
func RequirePredecessor(barcodeID string, journey *model.MachineJourney, workstation int) error {
	if workstation <= 1 {
		return nil
	}
	if journey != nil && journey.HasCompleted(workstation-1) {
		return nil
	}
	return &SequenceError{BarcodeID: barcodeID, Workstation: workstation, Required: workstation - 1}
}
