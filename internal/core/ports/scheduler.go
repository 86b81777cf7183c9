package ports

import (
	"context"
	"time"
)

type SlotRequest struct {
	ProcessID  string
	RoomNumber int
	BedNumber  int
	Start      time.Time
	Emergency  bool
}

type Reservation struct {
	ID         string    `json:"id"`
	ProcessID  string    `json:"process_id"`
	RoomNumber int       `json:"room_number"`
	BedNumber  int       `json:"bed_number"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Emergency  bool      `json:"emergency"`
}

// SlotScheduler reserves room/bed/time slots. ReserveSlot fails with
// domain.ErrSlotConflict when the bed or room is taken.
type SlotScheduler interface {
	ReserveSlot(ctx context.Context, req SlotRequest) (*Reservation, error)
	ReleaseSlot(ctx context.Context, res Reservation) error
}
