package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type sent struct {
	endpoint string
	payload  string
}

// mockSender records pushes on a channel and answers with a fixed status.
type mockSender struct {
	status int
	calls  chan sent
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	m.calls <- sent{endpoint: sub.Endpoint, payload: string(payload)}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}, nil
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func subscriptionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "workstations", "created_at"}).
		AddRow("https://example.com/ws2", "k1", "a1", "[2]", time.Now()).
		AddRow("https://example.com/ws3", "k2", "a2", "[3,4]", time.Now()).
		AddRow("https://example.com/ws6", "k3", "a3", "[6]", time.Now())
}

func waitFor(t *testing.T, ch chan sent) sent {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return sent{}
	}
}

func TestMessage(t *testing.T) {
	target, msg := Message(Event{BarcodeID: "BC1", Workstation: 1})
	assert.Equal(t, 2, target)
	assert.Equal(t, "Machine BC1 is ready for External Parts Service", msg)

	target, msg = Message(Event{BarcodeID: "BC1", Workstation: 6})
	assert.Equal(t, 6, target)
	assert.Equal(t, "Machine BC1 has completed service", msg)
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 1, db, &webpush.Options{})

	assert.True(t, wp.Dispatch(Event{BarcodeID: "BC1", Workstation: 1}))
	// The queue holds one event and no worker is draining it.
	assert.False(t, wp.Dispatch(Event{BarcodeID: "BC2", Workstation: 1}))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, Event{BarcodeID: "BC1", Workstation: 1}, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_NilIsDisabled(t *testing.T) {
	var wp *WorkerPool
	wp.Start(context.Background())
	assert.False(t, wp.Dispatch(Event{BarcodeID: "BC1", Workstation: 1}))
}

func TestWorkerPool_NotifiesNextStation(t *testing.T) {
	gormDB, mock := newTestDB(t)
	sender := &mockSender{status: http.StatusCreated, calls: make(chan sent, 4)}
	wp := NewWorkerPool(1, 4, gormDB, &webpush.Options{}).WithSender(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).WillReturnRows(subscriptionRows())

	wp.Dispatch(Event{BarcodeID: "BC7", Workstation: 2})
	got := waitFor(t, sender.calls)
	assert.Equal(t, "https://example.com/ws3", got.endpoint)
	assert.Equal(t, "Machine BC7 is ready for Disassembly", got.payload)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sender.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	gormDB, mock := newTestDB(t)
	sender := &mockSender{status: http.StatusGone, calls: make(chan sent, 4)}
	wp := NewWorkerPool(1, 4, gormDB, &webpush.Options{}).WithSender(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).WillReturnRows(subscriptionRows())
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
		WithArgs("https://example.com/ws6").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	wp.Dispatch(Event{BarcodeID: "BC7", Workstation: 6})
	got := waitFor(t, sender.calls)
	assert.Equal(t, "https://example.com/ws6", got.endpoint)
	assert.Equal(t, "Machine BC7 has completed service", got.payload)

	// A short sleep to allow the worker to process the delete
	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_QueryFailureSendsNothing(t *testing.T) {
	gormDB, mock := newTestDB(t)
	sender := &mockSender{status: http.StatusCreated, calls: make(chan sent, 1)}
	wp := NewWorkerPool(1, 1, gormDB, &webpush.Options{}).WithSender(sender)

	mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).WillReturnError(fmt.Errorf("connection reset"))

	wp.notifyCheckout(context.Background(), Event{BarcodeID: "BC7", Workstation: 1})
	assert.Empty(t, sender.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
