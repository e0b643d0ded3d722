package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/domain/slot"
	"github.com/aeroclub/slotbooking/internal/booking/service"
	"github.com/aeroclub/slotbooking/internal/booking/storage"
	apperrors "github.com/aeroclub/slotbooking/internal/platform/errors"
)

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		body := gin.H{"code": string(domainErr.Code), "error": domainErr.Message}
		if len(domainErr.Metadata) > 0 {
			body["metadata"] = domainErr.Metadata
		}
		c.JSON(domainErr.Code.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": string(apperrors.CodeUnknown), "error": "internal error"})
}

// SlotHandler serves slot aggregate commands and the slot state query.
type SlotHandler struct {
	slots  *service.SlotService
	logger *zap.Logger
}

// NewSlotHandler builds a slot handler.
func NewSlotHandler(slots *service.SlotService, logger *zap.Logger) *SlotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotHandler{slots: slots, logger: logger}
}

type availabilityRequest struct {
	ParticipantID   string `json:"participant_id" binding:"required"`
	ParticipantType string `json:"participant_type" binding:"required"`
}

type appendedResponse struct {
	SlotID string   `json:"slot_id"`
	Seqs   []uint64 `json:"seqs"`
}

func appendedBody(slotID string, events []event.Event) appendedResponse {
	seqs := make([]uint64, 0, len(events))
	for _, evt := range events {
		seqs = append(seqs, evt.Seq)
	}
	return appendedResponse{SlotID: slotID, Seqs: seqs}
}

// MarkAvailable handles POST /v1/slots/:slotID/availability.
func (h *SlotHandler) MarkAvailable(c *gin.Context) {
	var in availabilityRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slotID := c.Param("slotID")
	events, err := h.slots.MarkAvailable(c.Request.Context(), slotID, in.ParticipantID, in.ParticipantType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appendedBody(slotID, events))
}

// UnmarkAvailable handles DELETE /v1/slots/:slotID/availability.
func (h *SlotHandler) UnmarkAvailable(c *gin.Context) {
	var in availabilityRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slotID := c.Param("slotID")
	events, err := h.slots.UnmarkAvailable(c.Request.Context(), slotID, in.ParticipantID, in.ParticipantType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appendedBody(slotID, events))
}

type bookRequest struct {
	StudentID    string `json:"student_id" binding:"required"`
	AircraftID   string `json:"aircraft_id" binding:"required"`
	InstructorID string `json:"instructor_id" binding:"required"`
	// BookingID is optional: a fresh id is generated when omitted.
	BookingID string `json:"booking_id"`
}

// BookReservation handles POST /v1/slots/:slotID/bookings.
func (h *SlotHandler) BookReservation(c *gin.Context) {
	var in bookRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.BookingID == "" {
		in.BookingID = uuid.NewString()
	}
	slotID := c.Param("slotID")
	events, err := h.slots.BookReservation(c.Request.Context(), slotID, in.StudentID, in.AircraftID, in.InstructorID, in.BookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	body := appendedBody(slotID, events)
	c.JSON(http.StatusCreated, gin.H{"slot_id": body.SlotID, "booking_id": in.BookingID, "seqs": body.Seqs})
}

// CancelBooking handles DELETE /v1/slots/:slotID/bookings/:bookingID.
func (h *SlotHandler) CancelBooking(c *gin.Context) {
	slotID := c.Param("slotID")
	events, err := h.slots.CancelBooking(c.Request.Context(), slotID, c.Param("bookingID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appendedBody(slotID, events))
}

type slotStateResponse struct {
	SlotID    string                `json:"slot_id"`
	Available []slotParticipantView `json:"available"`
	Bookings  []slotBookingView     `json:"bookings"`
}

type slotParticipantView struct {
	ParticipantID   string `json:"participant_id"`
	ParticipantType string `json:"participant_type"`
}

type slotBookingView struct {
	BookingID       string `json:"booking_id"`
	ParticipantID   string `json:"participant_id"`
	ParticipantType string `json:"participant_type"`
	Canceled        bool   `json:"canceled"`
}

// GetSlot handles GET /v1/slots/:slotID.
func (h *SlotHandler) GetSlot(c *gin.Context) {
	state, err := h.slots.GetSlot(c.Request.Context(), c.Param("slotID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slotStateBody(state))
}

func slotStateBody(state slot.Timeslot) slotStateResponse {
	body := slotStateResponse{
		SlotID:    state.SlotID,
		Available: make([]slotParticipantView, 0, len(state.Available)),
		Bookings:  make([]slotBookingView, 0, len(state.Bookings)),
	}
	for participant := range state.Available {
		body.Available = append(body.Available, slotParticipantView{
			ParticipantID:   participant.ID,
			ParticipantType: string(participant.Type),
		})
	}
	for _, booking := range state.Bookings {
		body.Bookings = append(body.Bookings, slotBookingView{
			BookingID:       booking.BookingID,
			ParticipantID:   booking.Participant.ID,
			ParticipantType: string(booking.Participant.Type),
			Canceled:        booking.Canceled,
		})
	}
	return body
}

// ParticipantHandler serves the read-model queries.
type ParticipantHandler struct {
	rows   storage.SlotRowStore
	logger *zap.Logger
}

// NewParticipantHandler builds a participant query handler.
func NewParticipantHandler(rows storage.SlotRowStore, logger *zap.Logger) *ParticipantHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipantHandler{rows: rows, logger: logger}
}

type slotRowView struct {
	SlotID          string    `json:"slot_id"`
	ParticipantID   string    `json:"participant_id"`
	ParticipantType string    `json:"participant_type"`
	Status          string    `json:"status"`
	BookingID       string    `json:"booking_id"`
	LastUpdated     time.Time `json:"last_updated"`
}

const defaultQueryLimit = 100

// ListSlots handles GET /v1/participants/:participantID/slots[?status=].
func (h *ParticipantHandler) ListSlots(c *gin.Context) {
	participantID := c.Param("participantID")
	status := c.Query("status")

	var (
		rows []storage.SlotRow
		err  error
	)
	if status == "" {
		rows, err = h.rows.ListSlotRowsByParticipant(c.Request.Context(), participantID, defaultQueryLimit)
	} else {
		rows, err = h.rows.ListSlotRowsByParticipantStatus(c.Request.Context(), participantID, status, defaultQueryLimit)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]slotRowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, slotRowView{
			SlotID:          row.SlotID,
			ParticipantID:   row.ParticipantID,
			ParticipantType: string(row.ParticipantType),
			Status:          row.Status,
			BookingID:       row.BookingID,
			LastUpdated:     row.LastUpdated,
		})
	}
	c.JSON(http.StatusOK, gin.H{"participant_id": participantID, "slots": views})
}

// OutboxHandler serves outbox introspection endpoints.
type OutboxHandler struct {
	outbox storage.OutboxStore
	logger *zap.Logger
}

// NewOutboxHandler builds an outbox inspection handler.
func NewOutboxHandler(outbox storage.OutboxStore, logger *zap.Logger) *OutboxHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxHandler{outbox: outbox, logger: logger}
}

// Summary handles GET /internal/outbox.
func (h *OutboxHandler) Summary(c *gin.Context) {
	summary, err := h.outbox.GetOutboxSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Rows handles GET /internal/outbox/rows[?status=&limit=].
func (h *OutboxHandler) Rows(c *gin.Context) {
	limit := defaultQueryLimit
	rows, err := h.outbox.ListOutboxRows(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// Requeue handles POST /internal/outbox/requeue.
func (h *OutboxHandler) Requeue(c *gin.Context) {
	requeued, err := h.outbox.RequeueOutboxDeadRows(c.Request.Context(), defaultQueryLimit, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("requeued dead outbox rows", zap.Int("count", requeued))
	c.JSON(http.StatusOK, gin.H{"requeued": requeued})
}
