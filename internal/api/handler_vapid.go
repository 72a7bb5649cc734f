package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-service-backend/internal/station"
)

type watchableStation struct {
	Number int    `json:"stationNumber"`
	Name   string `json:"stationName"`
}

// GetVAPIDPublicKey returns the VAPID public key along with the stations a
// browser may subscribe to. Push is optional, so an unconfigured server
// answers 503 and clients hide the notification toggle.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return
	}

	stations := make([]watchableStation, 0, station.Count)
	for _, ws := range station.All() {
		stations = append(stations, watchableStation{Number: ws.Number, Name: ws.Name})
	}
	c.JSON(http.StatusOK, gin.H{
		"public_key":   h.webpush.VAPIDPublicKey,
		"workstations": stations,
	})
}
