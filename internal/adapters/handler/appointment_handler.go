package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

type AppointmentHandler struct {
	workflow ports.WorkflowService
}

func NewAppointmentHandler(workflow ports.WorkflowService) *AppointmentHandler {
	return &AppointmentHandler{workflow: workflow}
}

type ScheduleAppointmentRequest struct {
	ProcessID       string    `json:"processId" binding:"required"`
	AppointmentDate time.Time `json:"appointmentDate" binding:"required"`
	Location        string    `json:"location"`
	RoomNumber      int       `json:"roomNumber"`
	BedNumber       int       `json:"bedNumber"`
	Notes           string    `json:"notes"`
}

type RescheduleRequest struct {
	Reason string `json:"reason"`
}

func (h *AppointmentHandler) Schedule(c *gin.Context) {
	var req ScheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	p, err := h.workflow.Schedule(c.Request.Context(), req.ProcessID, domain.ScheduleInput{
		ScheduledDate: req.AppointmentDate,
		Location:      req.Location,
		RoomNumber:    req.RoomNumber,
		BedNumber:     req.BedNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newProcessResponse(p))
}

// Reschedule takes an appointment id. Donors may reschedule their own
// appointments only.
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	appointmentID := c.Param("id")
	owner, err := h.workflow.GetByAppointment(c.Request.Context(), appointmentID)
	if err == nil && !canSee(c, owner) {
		err = domain.NewNotFoundError("appointment %s not found", appointmentID)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	p, err := h.workflow.RescheduleAppointment(c.Request.Context(), appointmentID, domain.RescheduleInput{Reason: req.Reason})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProcessResponse(p))
}
