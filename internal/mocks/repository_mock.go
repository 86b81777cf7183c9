package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/repository"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// MockProcessRepository wraps the in-memory store with error injection.
type MockProcessRepository struct {
	*repository.MemoryRepository

	mu sync.Mutex

	CreateError error
	FindError   error
	UpdateError error

	// BeforeUpdate runs before each Update is applied; tests use it to
	// simulate a competing writer.
	BeforeUpdate func(p *domain.DonationProcess)

	UpdateCallCount int
	UpdateEvents    []ports.TransitionEvent
}

var _ ports.ProcessRepository = (*MockProcessRepository)(nil)

func NewMockProcessRepository() *MockProcessRepository {
	return &MockProcessRepository{
		MemoryRepository: repository.NewMemoryRepository(),
	}
}

func (m *MockProcessRepository) Create(ctx context.Context, p *domain.DonationProcess) error {
	m.mu.Lock()
	err := m.CreateError
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.MemoryRepository.Create(ctx, p)
}

func (m *MockProcessRepository) FindByID(ctx context.Context, id string) (*domain.DonationProcess, error) {
	m.mu.Lock()
	err := m.FindError
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.MemoryRepository.FindByID(ctx, id)
}

func (m *MockProcessRepository) Update(ctx context.Context, p *domain.DonationProcess, expectedVersion int64, evt *ports.TransitionEvent) error {
	m.mu.Lock()
	m.UpdateCallCount++
	err := m.UpdateError
	hook := m.BeforeUpdate
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(p)
	}
	if err := m.MemoryRepository.Update(ctx, p, expectedVersion, evt); err != nil {
		return err
	}

	if evt != nil {
		m.mu.Lock()
		m.UpdateEvents = append(m.UpdateEvents, *evt)
		m.mu.Unlock()
	}
	return nil
}

// GetUpdateEvents returns the events committed together with a process.
func (m *MockProcessRepository) GetUpdateEvents() []ports.TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]ports.TransitionEvent, len(m.UpdateEvents))
	copy(events, m.UpdateEvents)
	return events
}

func (m *MockProcessRepository) GetUpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UpdateCallCount
}
