package ports

import (
	"context"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
)

type WorkflowService interface {
	CreateRequest(ctx context.Context, in domain.CreateRequestInput) (*domain.DonationProcess, error)
	Get(ctx context.Context, processID string) (*domain.DonationProcess, error)
	GetByAppointment(ctx context.Context, appointmentID string) (*domain.DonationProcess, error)
	List(ctx context.Context, statuses ...domain.Status) ([]*domain.DonationProcess, error)
	ListByDonor(ctx context.Context, donorID string) ([]*domain.DonationProcess, error)

	ApplyTransition(ctx context.Context, processID string, t domain.Transition, payload domain.Payload) (*domain.DonationProcess, error)
	UpdateStatus(ctx context.Context, processID string, newStatus domain.Status, note string) (*domain.DonationProcess, error)

	Approve(ctx context.Context, processID string) (*domain.DonationProcess, error)
	Reject(ctx context.Context, processID string, in domain.RejectInput) (*domain.DonationProcess, error)
	Schedule(ctx context.Context, processID string, in domain.ScheduleInput) (*domain.DonationProcess, error)
	RequestReschedule(ctx context.Context, processID string, in domain.RescheduleInput) (*domain.DonationProcess, error)
	RescheduleAppointment(ctx context.Context, appointmentID string, in domain.RescheduleInput) (*domain.DonationProcess, error)
	RecordHealthCheck(ctx context.Context, processID string, in domain.HealthCheckInput) (*domain.DonationProcess, error)
	CollectBlood(ctx context.Context, processID string, in domain.CollectionInput) (*domain.DonationProcess, error)
	RecordTest(ctx context.Context, processID string, in domain.TestResultInput) (*domain.DonationProcess, error)
	Complete(ctx context.Context, processID string) (*domain.DonationProcess, error)
	Cancel(ctx context.Context, processID string, in domain.CancelInput) (*domain.DonationProcess, error)
}
