package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// MemoryRepository is the in-process reference store. It keeps private
// copies of every process and hands out copies on read.
type MemoryRepository struct {
	mu        sync.RWMutex
	processes map[string]*domain.DonationProcess
}

var _ ports.ProcessRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		processes: make(map[string]*domain.DonationProcess),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, process *domain.DonationProcess) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.processes[process.ID]; exists {
		return domain.NewValidationError("process %s already exists", process.ID)
	}
	r.processes[process.ID] = process.Clone()
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*domain.DonationProcess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processes[id]
	if !ok {
		return nil, domain.NewNotFoundError("donation process %s not found", id)
	}
	return p.Clone(), nil
}

func (r *MemoryRepository) FindByAppointmentID(ctx context.Context, appointmentID string) (*domain.DonationProcess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.processes {
		if p.Appointment != nil && p.Appointment.ID == appointmentID {
			return p.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("appointment %s not found", appointmentID)
}

func (r *MemoryRepository) List(ctx context.Context) ([]*domain.DonationProcess, error) {
	return r.filter(ctx, func(*domain.DonationProcess) bool { return true })
}

func (r *MemoryRepository) ListByStatus(ctx context.Context, statuses []domain.Status) ([]*domain.DonationProcess, error) {
	wanted := make(map[domain.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	return r.filter(ctx, func(p *domain.DonationProcess) bool { return wanted[p.Status] })
}

func (r *MemoryRepository) ListByDonor(ctx context.Context, donorID string) ([]*domain.DonationProcess, error) {
	return r.filter(ctx, func(p *domain.DonationProcess) bool { return p.DonorID == donorID })
}

// Update ignores evt; without an outbox the notifier is the only consumer.
func (r *MemoryRepository) Update(ctx context.Context, process *domain.DonationProcess, expectedVersion int64, _ *ports.TransitionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.processes[process.ID]
	if !ok {
		return domain.NewNotFoundError("donation process %s not found", process.ID)
	}
	if stored.Version != expectedVersion {
		return domain.NewConcurrentModificationError(process.ID)
	}
	r.processes[process.ID] = process.Clone()
	return nil
}

// filter returns copies of the matching processes, oldest first.
func (r *MemoryRepository) filter(ctx context.Context, match func(*domain.DonationProcess) bool) ([]*domain.DonationProcess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.DonationProcess, 0)
	for _, p := range r.processes {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
