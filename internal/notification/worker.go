package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"machine-service-backend/internal/model"
	"machine-service-backend/internal/station"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Event records that a machine was checked out of a workstation.
type Event struct {
	BarcodeID   string
	Workstation int
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool. queueSize bounds the number of
// events waiting for a worker.
func NewWorkerPool(size, queueSize int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, queueSize),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// WithSender replaces the push sender. It must be called before Start.
func (wp *WorkerPool) WithSender(sender NotificationSender) *WorkerPool {
	wp.sender = sender
	return wp
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	if wp == nil {
		return
	}
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			log.Printf("Worker %d processing checkout of %s from workstation %d", id, ev.BarcodeID, ev.Workstation)
			wp.notifyCheckout(ctx, ev)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event without blocking. When the queue is full the
// event is dropped. A nil pool ignores every event, which is how the
// service runs with push disabled.
func (wp *WorkerPool) Dispatch(ev Event) bool {
	if wp == nil {
		return false
	}
	select {
	case wp.jobs <- ev:
		return true
	default:
		log.Printf("Notification queue full; dropping event for %s at workstation %d", ev.BarcodeID, ev.Workstation)
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

// Message returns the workstation whose subscribers hear about ev and the
// text they receive. Leaving a middle station announces arrival at the
// next one; leaving the final station announces completion to its own
// subscribers.
func Message(ev Event) (int, string) {
	if next, ok := station.Next(ev.Workstation); ok {
		return next, fmt.Sprintf("Machine %s is ready for %s", ev.BarcodeID, station.Name(next))
	}
	return ev.Workstation, fmt.Sprintf("Machine %s has completed service", ev.BarcodeID)
}

// notifyCheckout fetches the interested subscriptions and pushes to each.
func (wp *WorkerPool) notifyCheckout(ctx context.Context, ev Event) {
	if !station.Valid(ev.Workstation) {
		log.Printf("Ignoring notification for unknown workstation %d", ev.Workstation)
		return
	}
	target, message := Message(ev)

	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("Error fetching subscriptions for workstation %d: %v", target, err)
		return
	}

	sent := 0
	for _, sub := range subscriptions {
		if !sub.Watches(target) {
			continue
		}
		wp.sendNotification(ctx, sub, []byte(message))
		sent++
	}
	if sent > 0 {
		log.Printf("Sent %d notifications for workstation %d", sent, target)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
