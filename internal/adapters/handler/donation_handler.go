package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/middleware"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

type DonationHandler struct {
	workflow ports.WorkflowService
}

func NewDonationHandler(workflow ports.WorkflowService) *DonationHandler {
	return &DonationHandler{workflow: workflow}
}

// ProcessResponse is a process plus the transitions it may take next.
type ProcessResponse struct {
	*domain.DonationProcess
	AllowedTransitions []domain.Transition `json:"allowedTransitions"`
}

func newProcessResponse(p *domain.DonationProcess) ProcessResponse {
	return ProcessResponse{
		DonationProcess:    p,
		AllowedTransitions: domain.AllowedTransitions(p.Status),
	}
}

func newProcessList(ps []*domain.DonationProcess) []ProcessResponse {
	out := make([]ProcessResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProcessResponse(p))
	}
	return out
}

type DonorRequest struct {
	FullName  string `json:"fullName"`
	BloodType string `json:"bloodType"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type CreateDonationRequest struct {
	DonationType string       `json:"donationType"`
	Note         string       `json:"note"`
	Donor        DonorRequest `json:"donor"`
}

type UpdateStatusRequest struct {
	NewStatus string `json:"newStatus" binding:"required"`
	Note      string `json:"note"`
}

type HealthCheckRequest struct {
	BloodPressureSystolic  int     `json:"bloodPressureSystolic"`
	BloodPressureDiastolic int     `json:"bloodPressureDiastolic"`
	HeartRate              int     `json:"heartRate"`
	Temperature            float64 `json:"temperature"`
	Weight                 float64 `json:"weight"`
	HemoglobinLevel        float64 `json:"hemoglobinLevel"`
	IsEligible             *bool   `json:"isEligible" binding:"required"`
	Notes                  string  `json:"notes"`
}

type CollectRequest struct {
	CollectedVolumeMl int    `json:"collectedVolumeMl"`
	Notes             string `json:"notes"`
}

type TestResultRequest struct {
	IsSafe      *bool  `json:"isSafe" binding:"required"`
	Notes       string `json:"notes"`
	BloodUnitID string `json:"bloodUnitId"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (h *DonationHandler) Create(c *gin.Context) {
	var req CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	p, err := h.workflow.CreateRequest(c.Request.Context(), domain.CreateRequestInput{
		DonorID:      middleware.UserID(c),
		DonationType: domain.DonationType(strings.ToUpper(strings.TrimSpace(req.DonationType))),
		Note:         req.Note,
		Donor: domain.Donor{
			FullName:  req.Donor.FullName,
			BloodType: req.Donor.BloodType,
			Email:     req.Donor.Email,
			Phone:     req.Donor.Phone,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newProcessResponse(p))
}

func (h *DonationHandler) MyHistory(c *gin.Context) {
	ps, err := h.workflow.ListByDonor(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProcessList(ps))
}

// List accepts ?status=A&status=B and ?status=A,B.
func (h *DonationHandler) List(c *gin.Context) {
	var statuses []domain.Status
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, domain.Status(strings.ToUpper(s)))
			}
		}
	}

	ps, err := h.workflow.List(c.Request.Context(), statuses...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProcessList(ps))
}

func (h *DonationHandler) Get(c *gin.Context) {
	p, ok := h.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newProcessResponse(p))
}

func (h *DonationHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	status := domain.Status(strings.ToUpper(strings.TrimSpace(req.NewStatus)))
	if !status.IsValid() {
		writeError(c, domain.NewValidationError("unknown status %q", req.NewStatus))
		return
	}

	p, err := h.workflow.UpdateStatus(c.Request.Context(), c.Param("id"), status, req.Note)
	h.respond(c, p, err)
}

func (h *DonationHandler) RecordHealthCheck(c *gin.Context) {
	var req HealthCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	p, err := h.workflow.RecordHealthCheck(c.Request.Context(), c.Param("id"), domain.HealthCheckInput{
		BloodPressureSystolic:  req.BloodPressureSystolic,
		BloodPressureDiastolic: req.BloodPressureDiastolic,
		HeartRate:              req.HeartRate,
		Temperature:            req.Temperature,
		Weight:                 req.Weight,
		HemoglobinLevel:        req.HemoglobinLevel,
		IsEligible:             *req.IsEligible,
		Notes:                  req.Notes,
	})
	h.respond(c, p, err)
}

func (h *DonationHandler) CollectBlood(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	p, err := h.workflow.CollectBlood(c.Request.Context(), c.Param("id"), domain.CollectionInput{
		CollectedVolumeMl: req.CollectedVolumeMl,
		Notes:             req.Notes,
	})
	h.respond(c, p, err)
}

func (h *DonationHandler) RecordTestResult(c *gin.Context) {
	var req TestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	p, err := h.workflow.RecordTest(c.Request.Context(), c.Param("id"), domain.TestResultInput{
		Passed:      *req.IsSafe,
		Notes:       req.Notes,
		BloodUnitID: req.BloodUnitID,
	})
	h.respond(c, p, err)
}

func (h *DonationHandler) Complete(c *gin.Context) {
	p, err := h.workflow.Complete(c.Request.Context(), c.Param("id"))
	h.respond(c, p, err)
}

// Cancel is open to donors for their own processes.
func (h *DonationHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if _, ok := h.loadVisible(c); !ok {
		return
	}

	p, err := h.workflow.Cancel(c.Request.Context(), c.Param("id"), domain.CancelInput{Reason: req.Reason})
	h.respond(c, p, err)
}

// loadVisible fetches the process named by :id. Members only see their own
// processes; anything else reads as not found.
func (h *DonationHandler) loadVisible(c *gin.Context) (*domain.DonationProcess, bool) {
	id := c.Param("id")
	p, err := h.workflow.Get(c.Request.Context(), id)
	if err == nil && !canSee(c, p) {
		err = domain.NewNotFoundError("donation process %s not found", id)
	}
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return p, true
}

func (h *DonationHandler) respond(c *gin.Context, p *domain.DonationProcess, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProcessResponse(p))
}

func canSee(c *gin.Context, p *domain.DonationProcess) bool {
	if c.GetString(middleware.RoleKey) != middleware.RoleMember {
		return true
	}
	return p.DonorID == middleware.UserID(c)
}
