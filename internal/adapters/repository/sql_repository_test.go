package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// openTestDB connects to TEST_DB_CONNECTION_STRING and applies the schema.
// Run with: docker compose up postgres, then
// TEST_DB_CONNECTION_STRING=postgres://... go test ./internal/adapters/repository/...
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("TEST_DB_CONNECTION_STRING not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestSQLRepository_Integration_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := &domain.DonationProcess{
		ID:           uuid.NewString(),
		DonorID:      "donor-" + uuid.NewString(),
		Donor:        domain.Donor{FullName: "Ada Donor", BloodType: "A-", Email: "ada@example.com"},
		DonationType: domain.DonationEmergency,
		Status:       domain.StatusPendingApproval,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Donor, got.Donor)
	assert.Equal(t, domain.DonationEmergency, got.DonationType)
	assert.Nil(t, got.Appointment)
	assert.True(t, now.Equal(got.CreatedAt))

	scheduled := got.Clone()
	scheduled.Status = domain.StatusAppointmentScheduled
	scheduled.Version = 2
	scheduled.Appointment = &domain.Appointment{
		ID:            uuid.NewString(),
		ProcessID:     p.ID,
		ScheduledDate: now.Add(48 * time.Hour),
		Location:      "Central Blood Bank",
		RoomNumber:    3,
		BedNumber:     2,
		Status:        domain.AppointmentScheduled,
		ReservationID: uuid.NewString(),
	}
	require.NoError(t, repo.Update(ctx, scheduled, 1, nil))

	// a second writer holding version 1 loses
	assert.ErrorIs(t, repo.Update(ctx, scheduled, 1, nil), domain.ErrConcurrentModification)

	byAppointment, err := repo.FindByAppointmentID(ctx, scheduled.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byAppointment.ID)
	assert.Equal(t, 3, byAppointment.Appointment.RoomNumber)
	assert.Equal(t, 2, byAppointment.Appointment.BedNumber)
	assert.Equal(t, scheduled.Appointment.ReservationID, byAppointment.Appointment.ReservationID)

	done := byAppointment.Clone()
	done.Status = domain.StatusBloodCollected
	done.Version = 3
	done.HealthCheck = &domain.HealthCheckResult{
		BloodPressureSystolic: 118, BloodPressureDiastolic: 76, HeartRate: 64,
		Temperature: 36.5, Weight: 70, HemoglobinLevel: 13.9, IsEligible: true, CheckedAt: now,
	}
	done.Collection = &domain.CollectionResult{CollectedVolumeMl: 450, CollectedAt: now}
	require.NoError(t, repo.Update(ctx, done, 2, nil))

	final, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBloodCollected, final.Status)
	assert.Equal(t, int64(3), final.Version)
	require.NotNil(t, final.HealthCheck)
	assert.True(t, final.HealthCheck.IsEligible)
	require.NotNil(t, final.Collection)
	assert.Equal(t, 450, final.Collection.CollectedVolumeMl)
	assert.Nil(t, final.TestResult)
	assert.NoError(t, final.CheckStageInvariant())

	mine, err := repo.ListByDonor(ctx, p.DonorID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	collected, err := repo.ListByStatus(ctx, []domain.Status{domain.StatusBloodCollected})
	require.NoError(t, err)
	assert.Contains(t, processIDs(collected), p.ID)
}

func TestSQLRepository_Integration_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLRepository(db)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByAppointmentID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ghost := &domain.DonationProcess{ID: uuid.NewString(), Status: domain.StatusCancelled, Version: 2}
	assert.ErrorIs(t, repo.Update(ctx, ghost, 1, nil), domain.ErrNotFound)
}

func outboxPayload(t *testing.T, db *sql.DB, eventID string) ([]byte, bool) {
	t.Helper()
	var payload []byte
	err := db.QueryRow(`SELECT payload FROM outbox_events WHERE id = $1`, eventID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	require.NoError(t, err)
	return payload, true
}

func TestSQLRepository_Integration_OutboxCommitsWithTransition(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := &domain.DonationProcess{
		ID:           uuid.NewString(),
		DonorID:      "donor-" + uuid.NewString(),
		DonationType: domain.DonationStandard,
		Status:       domain.StatusPendingApproval,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	require.NoError(t, repo.Create(ctx, p))

	approved := p.Clone()
	approved.Status = domain.StatusAppointmentPending
	approved.Version = 2
	evt := ports.TransitionEvent{
		EventID:    uuid.NewString(),
		ProcessID:  p.ID,
		DonorID:    p.DonorID,
		Transition: domain.TransitionApprove,
		FromState:  domain.StatusPendingApproval,
		ToState:    domain.StatusAppointmentPending,
		OccurredAt: now,
	}
	require.NoError(t, repo.Update(ctx, approved, 1, &evt))

	payload, ok := outboxPayload(t, db, evt.EventID)
	require.True(t, ok, "committed transition must leave an outbox row")
	var got ports.TransitionEvent
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, p.ID, got.ProcessID)
	assert.Equal(t, domain.StatusAppointmentPending, got.ToState)

	// a write that loses the version race leaves no event behind
	lost := ports.TransitionEvent{
		EventID:    uuid.NewString(),
		ProcessID:  p.ID,
		DonorID:    p.DonorID,
		Transition: domain.TransitionReject,
		FromState:  domain.StatusPendingApproval,
		ToState:    domain.StatusRejected,
		OccurredAt: now,
	}
	rejected := p.Clone()
	rejected.Status = domain.StatusRejected
	rejected.Version = 2
	assert.ErrorIs(t, repo.Update(ctx, rejected, 1, &lost), domain.ErrConcurrentModification)
	_, ok = outboxPayload(t, db, lost.EventID)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAppointmentPending, stored.Status)
}
