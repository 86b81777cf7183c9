package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

const defaultSchedulingTimeout = 5 * time.Second

// WorkflowService owns the donation-process state machine. Every mutation
// goes through ApplyTransition, which checks the transition table, validates
// the payload, writes the new state with an optimistic version check and
// then notifies.
type WorkflowService struct {
	repo              ports.ProcessRepository
	scheduler         ports.SlotScheduler
	notifier          ports.TransitionNotifier
	metrics           ports.WorkflowMetrics
	logger            *zap.Logger
	now               func() time.Time
	schedulingTimeout time.Duration
}

var _ ports.WorkflowService = (*WorkflowService)(nil)

type Option func(*WorkflowService)

func WithClock(now func() time.Time) Option {
	return func(s *WorkflowService) { s.now = now }
}

func WithMetrics(m ports.WorkflowMetrics) Option {
	return func(s *WorkflowService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSchedulingTimeout bounds each call to the slot scheduler.
func WithSchedulingTimeout(d time.Duration) Option {
	return func(s *WorkflowService) {
		if d > 0 {
			s.schedulingTimeout = d
		}
	}
}

func NewWorkflowService(
	repo ports.ProcessRepository,
	scheduler ports.SlotScheduler,
	notifier ports.TransitionNotifier,
	logger *zap.Logger,
	opts ...Option,
) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WorkflowService{
		repo:              repo,
		scheduler:         scheduler,
		notifier:          notifier,
		metrics:           ports.NopMetrics{},
		logger:            logger,
		now:               time.Now,
		schedulingTimeout: defaultSchedulingTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextTransitions lists what may happen next to a process in status.
func NextTransitions(status domain.Status) []domain.Transition {
	return domain.AllowedTransitions(status)
}

func (s *WorkflowService) CreateRequest(ctx context.Context, in domain.CreateRequestInput) (*domain.DonationProcess, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	donationType := in.DonationType
	if donationType == "" {
		donationType = domain.DonationStandard
	}

	now := s.now()
	process := &domain.DonationProcess{
		ID:           uuid.NewString(),
		DonorID:      in.DonorID,
		Donor:        in.Donor,
		DonationType: donationType,
		Status:       domain.StatusPendingApproval,
		Note:         strings.TrimSpace(in.Note),
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	if err := s.repo.Create(ctx, process); err != nil {
		return nil, err
	}

	s.logger.Info("donation request created",
		zap.String("process_id", process.ID),
		zap.String("donor_id", process.DonorID),
		zap.String("donation_type", string(process.DonationType)))
	return process.Clone(), nil
}

func (s *WorkflowService) Get(ctx context.Context, processID string) (*domain.DonationProcess, error) {
	return s.repo.FindByID(ctx, processID)
}

func (s *WorkflowService) GetByAppointment(ctx context.Context, appointmentID string) (*domain.DonationProcess, error) {
	return s.repo.FindByAppointmentID(ctx, appointmentID)
}

func (s *WorkflowService) List(ctx context.Context, statuses ...domain.Status) ([]*domain.DonationProcess, error) {
	if len(statuses) == 0 {
		return s.repo.List(ctx)
	}
	for _, st := range statuses {
		if !st.IsValid() {
			return nil, domain.NewValidationError("unknown status %q", st)
		}
	}
	return s.repo.ListByStatus(ctx, statuses)
}

func (s *WorkflowService) ListByDonor(ctx context.Context, donorID string) ([]*domain.DonationProcess, error) {
	return s.repo.ListByDonor(ctx, donorID)
}

// UpdateStatus is the generic trigger used by the status endpoint. Only the
// targets that map onto a single transition are accepted.
func (s *WorkflowService) UpdateStatus(ctx context.Context, processID string, newStatus domain.Status, note string) (*domain.DonationProcess, error) {
	switch newStatus {
	case domain.StatusAppointmentPending:
		return s.Approve(ctx, processID)
	case domain.StatusRejected:
		return s.Reject(ctx, processID, domain.RejectInput{Note: note})
	case domain.StatusCancelled:
		return s.Cancel(ctx, processID, domain.CancelInput{Reason: note})
	}
	return nil, domain.NewValidationError("status %q cannot be set directly; use the matching transition", newStatus)
}

func (s *WorkflowService) Approve(ctx context.Context, processID string) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionApprove, nil)
}

func (s *WorkflowService) Reject(ctx context.Context, processID string, in domain.RejectInput) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionReject, in)
}

func (s *WorkflowService) Schedule(ctx context.Context, processID string, in domain.ScheduleInput) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionSchedule, in)
}

func (s *WorkflowService) RequestReschedule(ctx context.Context, processID string, in domain.RescheduleInput) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionRequestReschedule, in)
}

// RescheduleAppointment resolves the process that owns appointmentID and
// requests a reschedule on it.
func (s *WorkflowService) RescheduleAppointment(ctx context.Context, appointmentID string, in domain.RescheduleInput) (*domain.DonationProcess, error) {
	process, err := s.repo.FindByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return s.RequestReschedule(ctx, process.ID, in)
}

func (s *WorkflowService) RecordHealthCheck(ctx context.Context, processID string, in domain.HealthCheckInput) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionRecordHealthCheck, in)
}

func (s *WorkflowService) CollectBlood(ctx context.Context, processID string, in domain.CollectionInput) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionCollectBlood, in)
}

func (s *WorkflowService) RecordTest(ctx context.Context, processID string, in domain.TestResultInput) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionRecordTest, in)
}

func (s *WorkflowService) Complete(ctx context.Context, processID string) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionComplete, nil)
}

func (s *WorkflowService) Cancel(ctx context.Context, processID string, in domain.CancelInput) (*domain.DonationProcess, error) {
	return s.ApplyTransition(ctx, processID, domain.TransitionCancel, in)
}

// ApplyTransition moves a process along one edge of the transition table.
func (s *WorkflowService) ApplyTransition(
	ctx context.Context,
	processID string,
	t domain.Transition,
	payload domain.Payload,
) (*domain.DonationProcess, error) {
	start := time.Now()
	process, err := s.applyTransition(ctx, processID, t, payload)
	s.metrics.ObserveTransition(t, resultLabel(err), time.Since(start))
	if err != nil {
		s.logger.Debug("transition refused",
			zap.String("process_id", processID),
			zap.String("transition", string(t)),
			zap.Error(err))
	}
	return process, err
}

// pendingChange carries the side effects of a transition that must be
// settled around the commit.
type pendingChange struct {
	// reserved is the slot taken for this call; released if the commit fails.
	reserved *ports.Reservation
	// release is a slot to give back once the commit succeeded.
	release *ports.Reservation
}

func (s *WorkflowService) applyTransition(
	ctx context.Context,
	processID string,
	t domain.Transition,
	payload domain.Payload,
) (*domain.DonationProcess, error) {
	if !t.IsValid() {
		return nil, domain.NewValidationError("unknown transition %q", t)
	}

	current, err := s.repo.FindByID(ctx, processID)
	if err != nil {
		return nil, err
	}
	if !domain.IsAllowed(current.Status, t) {
		return nil, domain.NewInvalidTransitionError(current.Status, t)
	}

	now := s.now()
	next := current.Clone()
	var change pendingChange

	switch t {
	case domain.TransitionApprove:
		if err := requireNoPayload(t, payload); err != nil {
			return nil, err
		}
		next.Status = domain.StatusAppointmentPending
		next.Note = "Donation request approved, awaiting appointment."

	case domain.TransitionReject:
		in, err := payloadAs[domain.RejectInput](t, payload)
		if err != nil {
			return nil, err
		}
		next.Status = domain.StatusRejected
		next.Note = in.Note

	case domain.TransitionSchedule:
		in, err := payloadAs[domain.ScheduleInput](t, payload)
		if err != nil {
			return nil, err
		}
		if err := s.schedule(ctx, current, next, in, now, &change); err != nil {
			return nil, err
		}

	case domain.TransitionRequestReschedule:
		in, err := payloadAs[domain.RescheduleInput](t, payload)
		if err != nil {
			return nil, err
		}
		if next.Appointment == nil {
			return nil, domain.NewValidationError("process %s has no appointment to reschedule", processID)
		}
		change.release = reservationOf(current)
		next.Appointment.Status = domain.AppointmentRescheduleRequested
		next.Appointment.RescheduleReason = in.Reason
		next.Appointment.ReservationID = ""
		next.Status = domain.StatusRescheduleRequested
		next.Note = "Reschedule requested. Reason: " + in.Reason

	case domain.TransitionRecordHealthCheck:
		in, err := payloadAs[domain.HealthCheckInput](t, payload)
		if err != nil {
			return nil, err
		}
		next.HealthCheck = &domain.HealthCheckResult{
			BloodPressureSystolic:  in.BloodPressureSystolic,
			BloodPressureDiastolic: in.BloodPressureDiastolic,
			HeartRate:              in.HeartRate,
			Temperature:            in.Temperature,
			Weight:                 in.Weight,
			HemoglobinLevel:        in.HemoglobinLevel,
			IsEligible:             in.IsEligible,
			Notes:                  in.Notes,
			CheckedAt:              now,
		}
		if in.IsEligible {
			next.Status = domain.StatusHealthCheckPassed
			next.Note = "Health check recorded. Result: Passed."
		} else {
			next.Status = domain.StatusHealthCheckFailed
			next.Note = strings.TrimSpace("Health check recorded. Result: Failed. " + in.Notes)
		}

	case domain.TransitionCollectBlood:
		in, err := payloadAs[domain.CollectionInput](t, payload)
		if err != nil {
			return nil, err
		}
		next.Collection = &domain.CollectionResult{
			CollectedVolumeMl: in.CollectedVolumeMl,
			Notes:             in.Notes,
			CollectedAt:       now,
		}
		next.Status = domain.StatusBloodCollected
		next.Note = fmt.Sprintf("Blood collected (%dml). Awaiting test results.", in.CollectedVolumeMl)

	case domain.TransitionRecordTest:
		in, err := payloadAs[domain.TestResultInput](t, payload)
		if err != nil {
			return nil, err
		}
		next.TestResult = &domain.TestResult{
			Passed:      in.Passed,
			Notes:       in.Notes,
			BloodUnitID: in.BloodUnitID,
			RecordedAt:  now,
		}
		if in.Passed {
			next.Status = domain.StatusTestingPassed
			next.Note = "Blood unit passed testing."
		} else {
			next.Status = domain.StatusTestingFailed
			next.Note = "Blood unit failed testing. Reason: " + in.Notes
		}

	case domain.TransitionComplete:
		if err := requireNoPayload(t, payload); err != nil {
			return nil, err
		}
		next.Status = domain.StatusCompleted
		next.Note = "Donation completed."

	case domain.TransitionCancel:
		in, err := payloadAs[domain.CancelInput](t, payload)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.StatusAppointmentScheduled {
			change.release = reservationOf(current)
		}
		next.Status = domain.StatusCancelled
		next.Note = "Cancelled. Reason: " + in.Reason
	}

	if !domain.CanTransition(current.Status, t, next.Status) {
		s.abandon(ctx, change)
		return nil, domain.NewInvalidTransitionError(current.Status, t)
	}
	if err := next.CheckStageInvariant(); err != nil {
		s.abandon(ctx, change)
		return nil, fmt.Errorf("transition %s on %s: %w", t, processID, err)
	}

	next.UpdatedAt = now
	next.Version = current.Version + 1

	// Cancellation before the write is a no-op for the process.
	if err := ctx.Err(); err != nil {
		s.abandon(ctx, change)
		return nil, err
	}
	evt := ports.TransitionEvent{
		EventID:    uuid.NewString(),
		ProcessID:  next.ID,
		DonorID:    next.DonorID,
		Transition: t,
		FromState:  current.Status,
		ToState:    next.Status,
		OccurredAt: now,
	}
	if err := s.repo.Update(ctx, next, current.Version, &evt); err != nil {
		s.abandon(ctx, change)
		return nil, err
	}

	if change.release != nil {
		s.releaseSlot(ctx, *change.release)
	}

	s.logger.Info("donation process transitioned",
		zap.String("process_id", next.ID),
		zap.String("transition", string(t)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next.Status)))

	s.notify(ctx, evt)

	return next.Clone(), nil
}

func (s *WorkflowService) schedule(
	ctx context.Context,
	current, next *domain.DonationProcess,
	in domain.ScheduleInput,
	now time.Time,
	change *pendingChange,
) error {
	utc := now.UTC()
	today := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	if in.ScheduledDate.Before(today) {
		return domain.NewValidationError("appointment date cannot be in the past")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	reservation, err := s.reserveSlot(ctx, ports.SlotRequest{
		ProcessID:  current.ID,
		RoomNumber: in.RoomNumber,
		BedNumber:  in.BedNumber,
		Start:      in.ScheduledDate,
		Emergency:  current.DonationType == domain.DonationEmergency,
	})
	if err != nil {
		return err
	}
	change.reserved = reservation

	appointmentID := uuid.NewString()
	if current.Appointment != nil {
		appointmentID = current.Appointment.ID
	}
	next.Appointment = &domain.Appointment{
		ID:            appointmentID,
		ProcessID:     current.ID,
		ScheduledDate: in.ScheduledDate,
		Location:      in.Location,
		RoomNumber:    in.RoomNumber,
		BedNumber:     in.BedNumber,
		Notes:         in.Notes,
		Status:        domain.AppointmentScheduled,
		ReservationID: reservation.ID,
	}
	next.Status = domain.StatusAppointmentScheduled
	next.Note = fmt.Sprintf("Appointment scheduled on %s at %s, room %d bed %d.",
		in.ScheduledDate.Format("02-01-2006 15:04"), in.Location, in.RoomNumber, in.BedNumber)
	return nil
}

func (s *WorkflowService) reserveSlot(ctx context.Context, req ports.SlotRequest) (*ports.Reservation, error) {
	rctx, cancel := context.WithTimeout(ctx, s.schedulingTimeout)
	defer cancel()

	reservation, err := s.scheduler.ReserveSlot(rctx, req)
	switch {
	case err == nil:
		s.metrics.ObserveReservation("reserved")
		return reservation, nil
	case errors.Is(err, domain.ErrSlotConflict), errors.Is(err, domain.ErrValidation):
		s.metrics.ObserveReservation("conflict")
		return nil, err
	case ctx.Err() != nil:
		// the caller gave up, not the scheduler
		return nil, ctx.Err()
	default:
		s.metrics.ObserveReservation("error")
		s.logger.Error("slot reservation failed",
			zap.String("process_id", req.ProcessID),
			zap.Int("room", req.RoomNumber),
			zap.Int("bed", req.BedNumber),
			zap.Error(err))
		if domain.KindOf(err) == domain.KindDependency {
			return nil, err
		}
		return nil, domain.NewDependencyError("scheduling service unavailable", err)
	}
}

// abandon undoes side effects of a transition that was not committed.
func (s *WorkflowService) abandon(ctx context.Context, change pendingChange) {
	if change.reserved != nil {
		s.releaseSlot(ctx, *change.reserved)
	}
}

func (s *WorkflowService) releaseSlot(ctx context.Context, res ports.Reservation) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.schedulingTimeout)
	defer cancel()

	if err := s.scheduler.ReleaseSlot(rctx, res); err != nil {
		s.logger.Warn("failed to release slot",
			zap.String("reservation_id", res.ID),
			zap.String("process_id", res.ProcessID),
			zap.Error(err))
	}
}

// notify never fails the transition; delivery retries are the notifier's job.
func (s *WorkflowService) notify(ctx context.Context, evt ports.TransitionEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Warn("transition notification failed",
			zap.String("event_id", evt.EventID),
			zap.String("process_id", evt.ProcessID),
			zap.String("to", string(evt.ToState)),
			zap.Error(err))
	}
}

// reservationOf rebuilds the reservation handle held by a scheduled
// appointment, or nil when it holds none.
func reservationOf(p *domain.DonationProcess) *ports.Reservation {
	a := p.Appointment
	if a == nil || a.ReservationID == "" {
		return nil
	}
	return &ports.Reservation{
		ID:         a.ReservationID,
		ProcessID:  p.ID,
		RoomNumber: a.RoomNumber,
		BedNumber:  a.BedNumber,
		Start:      a.ScheduledDate,
		Emergency:  p.DonationType == domain.DonationEmergency,
	}
}

func requireNoPayload(t domain.Transition, payload domain.Payload) error {
	if payload != nil {
		return domain.NewValidationError("transition %s takes no payload", t)
	}
	return nil
}

// payloadAs checks that payload is a T (or *T) and validates it.
func payloadAs[T domain.Payload](t domain.Transition, payload domain.Payload) (T, error) {
	var in T
	if v, ok := payload.(T); ok {
		in = v
	} else if p, ok := any(payload).(*T); ok && p != nil {
		in = *p
	} else {
		return in, domain.NewValidationError("transition %s requires a %T payload", t, in)
	}
	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := domain.KindOf(err); kind != "" {
		return strings.ToLower(string(kind))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "error"
}
