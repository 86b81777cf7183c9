package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// MockSlotScheduler implements ports.SlotScheduler. It grants every
// request unless an error is injected, and tracks what is held.
type MockSlotScheduler struct {
	mu sync.Mutex

	Requests []ports.SlotRequest
	Released []ports.Reservation
	held     map[string]ports.Reservation

	// Error injection
	ReserveError error
	ReleaseError error

	// ReserveDelay makes ReserveSlot wait, honouring ctx.
	ReserveDelay time.Duration
}

var _ ports.SlotScheduler = (*MockSlotScheduler)(nil)

func NewMockSlotScheduler() *MockSlotScheduler {
	return &MockSlotScheduler{
		held: make(map[string]ports.Reservation),
	}
}

func (m *MockSlotScheduler) ReserveSlot(ctx context.Context, req ports.SlotRequest) (*ports.Reservation, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	delay := m.ReserveDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReserveError != nil {
		return nil, m.ReserveError
	}
	res := ports.Reservation{
		ID:         uuid.NewString(),
		ProcessID:  req.ProcessID,
		RoomNumber: req.RoomNumber,
		BedNumber:  req.BedNumber,
		Start:      req.Start,
		End:        req.Start.Add(time.Hour),
		Emergency:  req.Emergency,
	}
	m.held[res.ID] = res
	return &res, nil
}

func (m *MockSlotScheduler) ReleaseSlot(ctx context.Context, res ports.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Released = append(m.Released, res)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	delete(m.held, res.ID)
	return nil
}

func (m *MockSlotScheduler) GetReserveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockSlotScheduler) GetReleased() []ports.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ports.Reservation, len(m.Released))
	copy(out, m.Released)
	return out
}

// HeldCount is the number of reservations granted and not yet released.
func (m *MockSlotScheduler) HeldCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}
