package model

import "time"

// OperatorRef identifies the operator who handled a station visit.
type OperatorRef struct {
	Name string `gorm:"size:128;not null" json:"name"`
	EPF  string `gorm:"size:32;not null" json:"epf"`
}

// MachineRecord is one station visit, from check-in to check-out.
type MachineRecord struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id,omitempty"`
	BarcodeID      string      `gorm:"index;size:64;not null" json:"barcodeId"`
	Seq            int         `gorm:"not null" json:"-"`
	Operator       OperatorRef `gorm:"embedded;embeddedPrefix:operator_" json:"operator"`
	Workstation    int         `gorm:"not null" json:"workstation"`
	CheckinTime    time.Time   `gorm:"not null" json:"checkinTime"`
	CheckoutTime   *time.Time  `json:"checkoutTime"`
	WaitTime       *int64      `json:"waitTime"` // milliseconds
	TasksCompleted []string    `gorm:"serializer:json;not null" json:"tasksCompleted"`
	TotalTasks     int         `gorm:"not null" json:"totalTasks"`
}

// IsOpen reports whether the record has not been checked out yet.
func (r *MachineRecord) IsOpen() bool {
	return r.CheckoutTime == nil
}

// Wait returns the recorded wait estimate, or nil when there was no queue.
func (r *MachineRecord) Wait() *time.Duration {
	if r.WaitTime == nil {
		return nil
	}
	d := time.Duration(*r.WaitTime) * time.Millisecond
	return &d
}

// ProcessingTime is the time spent at the station. It is zero while open.
func (r *MachineRecord) ProcessingTime() time.Duration {
	if r.CheckoutTime == nil {
		return 0
	}
	return r.CheckoutTime.Sub(r.CheckinTime)
}

// WaitMillis converts an optional wait duration into the stored form.
func WaitMillis(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}

func (r MachineRecord) clone() MachineRecord {
	c := r
	if r.CheckoutTime != nil {
		out := *r.CheckoutTime
		c.CheckoutTime = &out
	}
	if r.WaitTime != nil {
		w := *r.WaitTime
		c.WaitTime = &w
	}
	c.TasksCompleted = append([]string{}, r.TasksCompleted...)
	return c
}
