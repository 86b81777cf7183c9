package scheduling

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// MemoryScheduler keeps reservations in process memory. Used for local runs
// and as the reference the Redis scheduler is tested against.
type MemoryScheduler struct {
	policy RoomPolicy

	mu           sync.Mutex
	reservations map[string]ports.Reservation
}

var _ ports.SlotScheduler = (*MemoryScheduler)(nil)

func NewMemoryScheduler(policy RoomPolicy) *MemoryScheduler {
	return &MemoryScheduler{
		policy:       policy,
		reservations: make(map[string]ports.Reservation),
	}
}

func (s *MemoryScheduler) ReserveSlot(ctx context.Context, req ports.SlotRequest) (*ports.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.policy.Validate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]ports.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		existing = append(existing, r)
	}
	if err := s.policy.CheckAvailability(req, existing); err != nil {
		return nil, err
	}

	start, end := s.policy.Window(req.Start)
	res := ports.Reservation{
		ID:         uuid.NewString(),
		ProcessID:  req.ProcessID,
		RoomNumber: req.RoomNumber,
		BedNumber:  req.BedNumber,
		Start:      start,
		End:        end,
		Emergency:  req.Emergency,
	}
	s.reservations[res.ID] = res
	return &res, nil
}

// ReleaseSlot is idempotent; releasing an unknown reservation is not an error.
func (s *MemoryScheduler) ReleaseSlot(ctx context.Context, res ports.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, res.ID)
	return nil
}

// Reservations returns the held reservations ordered by start time.
func (s *MemoryScheduler) Reservations() []ports.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ports.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
