package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"machine-service-backend/internal/backup"
	"machine-service-backend/internal/export"
	"machine-service-backend/internal/notification"
	"machine-service-backend/internal/roster"
	"machine-service-backend/internal/store"
	"machine-service-backend/internal/workflow"
)

// Deps are the collaborators a Handler serves requests with. Notifier and
// Webpush may be nil when push notifications are not configured.
type Deps struct {
	Engine   *workflow.Engine
	Roster   *roster.Roster
	Store    store.Store
	DB       *gorm.DB
	Webpush  *webpush.Options
	Notifier *notification.WorkerPool
	Location *time.Location
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine   *workflow.Engine
	roster   *roster.Roster
	store    store.Store
	db       *gorm.DB
	webpush  *webpush.Options
	notifier *notification.WorkerPool
	loc      *time.Location
	report   *export.Formatter
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		engine:   d.Engine,
		roster:   d.Roster,
		store:    d.Store,
		db:       d.DB,
		webpush:  d.Webpush,
		notifier: d.Notifier,
		loc:      loc,
		report:   export.NewFormatter(loc),
	}
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised
// is a storage failure.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrValidation),
		errors.Is(err, backup.ErrInvalidDocument),
		errors.Is(err, roster.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, roster.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrConflict), errors.Is(err, roster.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrOutOfSequence):
		status = http.StatusUnprocessableEntity
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
