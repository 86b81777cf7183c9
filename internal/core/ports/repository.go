package ports

import (
	"context"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
)

// ProcessRepository stores donation processes. Reads return snapshots that
// callers may modify freely; Create and Update are reserved for the
// workflow service.
type ProcessRepository interface {
	Create(ctx context.Context, process *domain.DonationProcess) error
	FindByID(ctx context.Context, id string) (*domain.DonationProcess, error)
	FindByAppointmentID(ctx context.Context, appointmentID string) (*domain.DonationProcess, error)
	List(ctx context.Context) ([]*domain.DonationProcess, error)
	ListByStatus(ctx context.Context, statuses []domain.Status) ([]*domain.DonationProcess, error)
	ListByDonor(ctx context.Context, donorID string) ([]*domain.DonationProcess, error)
	// Update atomically replaces the process and its sub-entities when the
	// stored version equals expectedVersion, and fails with
	// domain.ErrConcurrentModification otherwise. A store with an outbox
	// records evt, when set, in the same write.
	Update(ctx context.Context, process *domain.DonationProcess, expectedVersion int64, evt *TransitionEvent) error
}
