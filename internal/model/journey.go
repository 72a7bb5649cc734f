package model

import "time"

// MachineJourney is the full lifecycle of one physical machine across the
// service workstations. It is keyed by the barcode on the machine.
type MachineJourney struct {
	BarcodeID             string          `gorm:"primaryKey;size:64" json:"barcodeId"`
	CurrentWorkstation    *int            `gorm:"index" json:"currentWorkstation"`
	CompletedWorkstations []int           `gorm:"serializer:json;not null" json:"completedWorkstations"`
	Records               []MachineRecord `gorm:"foreignKey:BarcodeID;references:BarcodeID;constraint:OnDelete:CASCADE" json:"records"`
	StartTime             time.Time       `gorm:"not null" json:"startTime"`
	EndTime               *time.Time      `gorm:"index" json:"endTime"`
	UpdatedAt             time.Time       `json:"-"`
}

// OpenRecord returns the record for workstation that has not been checked out.
func (j *MachineJourney) OpenRecord(workstation int) *MachineRecord {
	for i := range j.Records {
		if j.Records[i].Workstation == workstation && j.Records[i].CheckoutTime == nil {
			return &j.Records[i]
		}
	}
	return nil
}

// HasCompleted reports whether workstation has been checked out at least once.
func (j *MachineJourney) HasCompleted(workstation int) bool {
	for _, ws := range j.CompletedWorkstations {
		if ws == workstation {
			return true
		}
	}
	return false
}

// IsComplete reports whether the machine has left the final station.
func (j *MachineJourney) IsComplete() bool {
	return j.EndTime != nil
}

// TotalWait sums the wait estimates recorded at each check-in.
func (j *MachineJourney) TotalWait() time.Duration {
	var total time.Duration
	for _, r := range j.Records {
		if d := r.Wait(); d != nil {
			total += *d
		}
	}
	return total
}

// Duration is the time from first check-in to final check-out. It is zero
// for machines still in service.
func (j *MachineJourney) Duration() time.Duration {
	if j.EndTime == nil {
		return 0
	}
	return j.EndTime.Sub(j.StartTime)
}

// Clone returns a deep copy of the journey.
func (j *MachineJourney) Clone() *MachineJourney {
	if j == nil {
		return nil
	}
	c := *j
	if j.CurrentWorkstation != nil {
		ws := *j.CurrentWorkstation
		c.CurrentWorkstation = &ws
	}
	if j.EndTime != nil {
		end := *j.EndTime
		c.EndTime = &end
	}
	c.CompletedWorkstations = append([]int{}, j.CompletedWorkstations...)
	c.Records = make([]MachineRecord, len(j.Records))
	for i, r := range j.Records {
		c.Records[i] = r.clone()
	}
	return &c
}
