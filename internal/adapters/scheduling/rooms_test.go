package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

var nine = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func held(process string, room, bed int, start time.Time, emergency bool) ports.Reservation {
	return ports.Reservation{
		ID:         "res-" + process,
		ProcessID:  process,
		RoomNumber: room,
		BedNumber:  bed,
		Start:      start,
		End:        start.Add(time.Hour),
		Emergency:  emergency,
	}
}

func fullRoom(room, beds int, start time.Time) []ports.Reservation {
	out := make([]ports.Reservation, 0, beds)
	for bed := 1; bed <= beds; bed++ {
		out = append(out, held("p"+string(rune('a'+bed)), room, bed, start, false))
	}
	return out
}

// shift returns holds on beds 1..beds starting at start, owned by
// processes named after prefix.
func shift(prefix string, room, beds int, start time.Time) []ports.Reservation {
	out := make([]ports.Reservation, 0, beds)
	for bed := 1; bed <= beds; bed++ {
		out = append(out, held(prefix+string(rune('0'+bed)), room, bed, start, false))
	}
	return out
}

func TestRoomPolicy_Validate(t *testing.T) {
	policy := DefaultRoomPolicy()
	valid := ports.SlotRequest{ProcessID: "p-1", RoomNumber: 16, BedNumber: 8, Start: nine}
	assert.NoError(t, policy.Validate(valid))

	tests := []struct {
		name   string
		mutate func(r *ports.SlotRequest)
	}{
		{"missing process", func(r *ports.SlotRequest) { r.ProcessID = "" }},
		{"zero start", func(r *ports.SlotRequest) { r.Start = time.Time{} }},
		{"room zero", func(r *ports.SlotRequest) { r.RoomNumber = 0 }},
		{"room seventeen", func(r *ports.SlotRequest) { r.RoomNumber = 17 }},
		{"bed zero", func(r *ports.SlotRequest) { r.BedNumber = 0 }},
		{"bed nine", func(r *ports.SlotRequest) { r.BedNumber = 9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			assert.ErrorIs(t, policy.Validate(req), domain.ErrValidation)
		})
	}
}

func TestRoomPolicy_CheckAvailability(t *testing.T) {
	policy := DefaultRoomPolicy()

	tests := []struct {
		name     string
		req      ports.SlotRequest
		existing []ports.Reservation
		wantErr  bool
	}{
		{
			name: "empty room",
			req:  ports.SlotRequest{ProcessID: "new", RoomNumber: 3, BedNumber: 2, Start: nine},
		},
		{
			name:     "same bed overlapping",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 3, BedNumber: 2, Start: nine.Add(30 * time.Minute)},
			existing: []ports.Reservation{held("old", 3, 2, nine, false)},
			wantErr:  true,
		},
		{
			name:     "same bed back to back",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 3, BedNumber: 2, Start: nine.Add(time.Hour)},
			existing: []ports.Reservation{held("old", 3, 2, nine, false)},
		},
		{
			name:     "same bed other room",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 4, BedNumber: 2, Start: nine},
			existing: []ports.Reservation{held("old", 3, 2, nine, false)},
		},
		{
			name:     "same process is ignored",
			req:      ports.SlotRequest{ProcessID: "old", RoomNumber: 3, BedNumber: 2, Start: nine},
			existing: []ports.Reservation{held("old", 3, 2, nine, false)},
		},
		{
			name:     "sixth bed fits",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 6, Start: nine},
			existing: fullRoom(1, 5, nine),
		},
		{
			name:     "no seventh standard donor",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 7, Start: nine},
			existing: fullRoom(1, 6, nine),
			wantErr:  true,
		},
		{
			name:    "bed seven needs an emergency",
			req:     ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 7, Start: nine},
			wantErr: true,
		},
		{
			name: "emergency unlocks bed seven",
			req:  ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 7, Start: nine, Emergency: true},
		},
		{
			name:     "overlapping emergency unlocks bed seven",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 7, Start: nine},
			existing: []ports.Reservation{held("urgent", 1, 8, nine, true)},
		},
		{
			name:     "emergency adds beds to a full room",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 7, Start: nine, Emergency: true},
			existing: fullRoom(1, 6, nine),
		},
		{
			name: "staggered holds leave beds free",
			req:  ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 4, Start: nine},
			existing: append(shift("early", 1, 3, nine.Add(-30*time.Minute)),
				shift("late", 1, 3, nine.Add(30*time.Minute))...),
		},
		{
			name: "staggered holds below emergency capacity",
			req:  ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 8, Start: nine, Emergency: true},
			existing: append(shift("early", 1, 4, nine.Add(-30*time.Minute)),
				held("e5", 1, 5, nine.Add(15*time.Minute), false),
				held("e6", 1, 6, nine.Add(15*time.Minute), false),
				held("e7", 1, 7, nine.Add(15*time.Minute), true)),
		},
		{
			name:     "staggered holds still block a held bed",
			req:      ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 2, Start: nine},
			existing: shift("late", 1, 3, nine.Add(30*time.Minute)),
			wantErr:  true,
		},
		{
			name: "all eight beds taken",
			req:  ports.SlotRequest{ProcessID: "new", RoomNumber: 1, BedNumber: 8, Start: nine, Emergency: true},
			existing: append(fullRoom(1, 7, nine),
				held("x", 1, 8, nine.Add(-30*time.Minute), true)),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.CheckAvailability(tt.req, tt.existing)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrSlotConflict)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRoomPolicy_Window(t *testing.T) {
	policy := RoomPolicy{SlotDuration: 45 * time.Minute}
	start, end := policy.Window(nine)
	assert.Equal(t, nine, start)
	assert.Equal(t, nine.Add(45*time.Minute), end)
}

func TestPeakOccupancy(t *testing.T) {
	early := shift("early", 1, 3, nine.Add(-30*time.Minute))
	late := shift("late", 1, 3, nine.Add(30*time.Minute))

	assert.Equal(t, 0, peakOccupancy(nine, nil))
	assert.Equal(t, 3, peakOccupancy(nine, early))
	assert.Equal(t, 3, peakOccupancy(nine, append(early, late...)))
	assert.Equal(t, 6, peakOccupancy(nine, append(early, shift("mid", 1, 3, nine.Add(15*time.Minute))...)))
}
