package scheduling

import (
	"time"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// RoomPolicy describes the donation rooms. A room seats Capacity donors at
// once, or EmergencyCapacity while an emergency donation overlaps.
type RoomPolicy struct {
	Rooms             int
	Capacity          int
	EmergencyCapacity int
	SlotDuration      time.Duration
}

func DefaultRoomPolicy() RoomPolicy {
	return RoomPolicy{
		Rooms:             16,
		Capacity:          6,
		EmergencyCapacity: 8,
		SlotDuration:      time.Hour,
	}
}

// Validate rejects requests that could never fit, whatever else is booked.
func (p RoomPolicy) Validate(req ports.SlotRequest) error {
	if req.ProcessID == "" {
		return domain.NewValidationError("slot request needs a process id")
	}
	if req.Start.IsZero() {
		return domain.NewValidationError("slot request needs a start time")
	}
	if req.RoomNumber < 1 || req.RoomNumber > p.Rooms {
		return domain.NewValidationError("room %d does not exist (rooms 1-%d)", req.RoomNumber, p.Rooms)
	}
	if req.BedNumber < 1 || req.BedNumber > p.EmergencyCapacity {
		return domain.NewValidationError("bed %d does not exist (beds 1-%d)", req.BedNumber, p.EmergencyCapacity)
	}
	return nil
}

// Window returns the half-open interval a reservation starting at start holds.
func (p RoomPolicy) Window(start time.Time) (time.Time, time.Time) {
	return start, start.Add(p.SlotDuration)
}

// CheckAvailability decides whether req fits next to the reservations
// already held in its room. Reservations held by the same process are
// ignored so a stale hold never blocks its owner.
func (p RoomPolicy) CheckAvailability(req ports.SlotRequest, existing []ports.Reservation) error {
	start, end := p.Window(req.Start)

	emergency := req.Emergency
	var overlapping []ports.Reservation
	for _, r := range existing {
		if r.RoomNumber != req.RoomNumber || r.ProcessID == req.ProcessID {
			continue
		}
		if r.Start.Before(end) && start.Before(r.End) {
			overlapping = append(overlapping, r)
			emergency = emergency || r.Emergency
		}
	}

	capacity := p.Capacity
	if emergency {
		capacity = p.EmergencyCapacity
	}
	if req.BedNumber > capacity {
		return domain.NewSlotConflictError("bed %d is not available in room %d (capacity %d)",
			req.BedNumber, req.RoomNumber, capacity)
	}
	for _, r := range overlapping {
		if r.BedNumber == req.BedNumber {
			return domain.NewSlotConflictError("bed %d in room %d is already booked at %s",
				req.BedNumber, req.RoomNumber, req.Start.Format(time.RFC3339))
		}
	}
	if peakOccupancy(start, overlapping) >= capacity {
		return domain.NewSlotConflictError("room %d is fully booked at %s",
			req.RoomNumber, req.Start.Format(time.RFC3339))
	}
	return nil
}

// peakOccupancy returns the most beds held at any one instant of the window
// starting at start. Every hold passed in overlaps that window, so the peak
// is reached at the window start or at a later hold's start.
func peakOccupancy(start time.Time, holds []ports.Reservation) int {
	peak := 0
	for _, h := range holds {
		at := h.Start
		if at.Before(start) {
			at = start
		}
		held := 0
		for _, r := range holds {
			if !r.Start.After(at) && at.Before(r.End) {
				held++
			}
		}
		if held > peak {
			peak = held
		}
	}
	return peak
}
