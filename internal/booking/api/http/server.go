// Package http exposes the booking command and query surface over gin.
package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// RouterConfig carries the handler dependencies wired by the server binary.
type RouterConfig struct {
	Slots        *SlotHandler
	Participants *ParticipantHandler
	Outbox       *OutboxHandler
	ServiceName  string
	Logger       *zap.Logger
}

// NewRouter builds the gin engine with the booking routes mounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/slots/:slotID/availability", cfg.Slots.MarkAvailable)
		v1.DELETE("/slots/:slotID/availability", cfg.Slots.UnmarkAvailable)
		v1.POST("/slots/:slotID/bookings", cfg.Slots.BookReservation)
		v1.DELETE("/slots/:slotID/bookings/:bookingID", cfg.Slots.CancelBooking)
		v1.GET("/slots/:slotID", cfg.Slots.GetSlot)

		v1.GET("/participants/:participantID/slots", cfg.Participants.ListSlots)
	}

	internal := router.Group("/internal")
	{
		internal.GET("/outbox", cfg.Outbox.Summary)
		internal.GET("/outbox/rows", cfg.Outbox.Rows)
		internal.POST("/outbox/requeue", cfg.Outbox.Requeue)
	}

	return router
}
