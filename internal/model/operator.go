package model

import "time"

// Operator is a member of the workshop roster. The EPF number is the natural key.
type Operator struct {
	EPF       string    `gorm:"primaryKey;size:32" json:"epf"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

// Ref returns the reference stored on a machine record.
func (o Operator) Ref() OperatorRef {
	return OperatorRef{Name: o.Name, EPF: o.EPF}
}
