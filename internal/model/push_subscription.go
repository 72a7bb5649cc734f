package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Workstations lists the stations whose arrivals the subscriber wants to hear about.
type PushSubscription struct {
	Endpoint     string    `gorm:"primaryKey"`
	P256DH       string    `gorm:"column:p256dh;not null"`
	Auth         string    `gorm:"not null"`
	Workstations []int     `gorm:"serializer:json;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Watches reports whether the subscription covers workstation.
func (s *PushSubscription) Watches(workstation int) bool {
	for _, ws := range s.Workstations {
		if ws == workstation {
			return true
		}
	}
	return false
}
