package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

type SQLRepository struct {
	db *sql.DB
}

var _ ports.ProcessRepository = (*SQLRepository)(nil)

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectProcess = `
SELECT p.id, p.donor_id, p.donor_full_name, p.donor_blood_type, p.donor_email, p.donor_phone,
       p.donation_type, p.status, p.note, p.created_at, p.updated_at, p.version,
       a.id, a.scheduled_date, a.location, a.room_number, a.bed_number, a.notes, a.status,
       a.reschedule_reason, a.reservation_id,
       h.blood_pressure_systolic, h.blood_pressure_diastolic, h.heart_rate, h.temperature,
       h.weight, h.hemoglobin_level, h.is_eligible, h.notes, h.checked_at,
       c.collected_volume_ml, c.notes, c.collected_at,
       t.passed, t.notes, t.blood_unit_id, t.recorded_at
FROM donation_processes p
LEFT JOIN donation_appointments a ON a.process_id = p.id
LEFT JOIN donation_health_checks h ON h.process_id = p.id
LEFT JOIN donation_collections c ON c.process_id = p.id
LEFT JOIN donation_test_results t ON t.process_id = p.id`

func (r *SQLRepository) Create(ctx context.Context, p *domain.DonationProcess) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO donation_processes
			(id, donor_id, donor_full_name, donor_blood_type, donor_email, donor_phone,
			 donation_type, status, note, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID,
		p.DonorID,
		p.Donor.FullName,
		p.Donor.BloodType,
		p.Donor.Email,
		p.Donor.Phone,
		p.DonationType,
		p.Status,
		p.Note,
		p.CreatedAt,
		p.UpdatedAt,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("insert donation process %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*domain.DonationProcess, error) {
	p, err := scanProcess(r.db.QueryRowContext(ctx, selectProcess+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("donation process %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find donation process %s: %w", id, err)
	}
	return p, nil
}

func (r *SQLRepository) FindByAppointmentID(ctx context.Context, appointmentID string) (*domain.DonationProcess, error) {
	p, err := scanProcess(r.db.QueryRowContext(ctx, selectProcess+` WHERE a.id = $1`, appointmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("appointment %s not found", appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("find process by appointment %s: %w", appointmentID, err)
	}
	return p, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*domain.DonationProcess, error) {
	return r.query(ctx, selectProcess+` ORDER BY p.created_at, p.id`)
}

func (r *SQLRepository) ListByStatus(ctx context.Context, statuses []domain.Status) ([]*domain.DonationProcess, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return r.query(ctx, selectProcess+` WHERE p.status = ANY($1) ORDER BY p.created_at, p.id`, pq.Array(values))
}

func (r *SQLRepository) ListByDonor(ctx context.Context, donorID string) ([]*domain.DonationProcess, error) {
	return r.query(ctx, selectProcess+` WHERE p.donor_id = $1 ORDER BY p.created_at, p.id`, donorID)
}

// Update writes the process row, every present sub-entity and the outbox
// row for evt in one transaction. The version predicate on the process row
// is the optimistic lock.
func (r *SQLRepository) Update(ctx context.Context, p *domain.DonationProcess, expectedVersion int64, evt *ports.TransitionEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE donation_processes
		SET status = $2, note = $3, updated_at = $4, version = $5
		WHERE id = $1 AND version = $6`,
		p.ID,
		p.Status,
		p.Note,
		p.UpdatedAt,
		p.Version,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update donation process %s: %w", p.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM donation_processes WHERE id = $1)`, p.ID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.NewNotFoundError("donation process %s not found", p.ID)
		}
		return domain.NewConcurrentModificationError(p.ID)
	}

	if a := p.Appointment; a != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO donation_appointments
				(id, process_id, scheduled_date, location, room_number, bed_number, notes,
				 status, reschedule_reason, reservation_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (process_id) DO UPDATE SET
				scheduled_date = EXCLUDED.scheduled_date,
				location = EXCLUDED.location,
				room_number = EXCLUDED.room_number,
				bed_number = EXCLUDED.bed_number,
				notes = EXCLUDED.notes,
				status = EXCLUDED.status,
				reschedule_reason = EXCLUDED.reschedule_reason,
				reservation_id = EXCLUDED.reservation_id`,
			a.ID, p.ID, a.ScheduledDate, a.Location, a.RoomNumber, a.BedNumber, a.Notes,
			a.Status, a.RescheduleReason, a.ReservationID,
		)
		if err != nil {
			return fmt.Errorf("save appointment for %s: %w", p.ID, err)
		}
	}

	if h := p.HealthCheck; h != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO donation_health_checks
				(process_id, blood_pressure_systolic, blood_pressure_diastolic, heart_rate,
				 temperature, weight, hemoglobin_level, is_eligible, notes, checked_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (process_id) DO NOTHING`,
			p.ID, h.BloodPressureSystolic, h.BloodPressureDiastolic, h.HeartRate,
			h.Temperature, h.Weight, h.HemoglobinLevel, h.IsEligible, h.Notes, h.CheckedAt,
		)
		if err != nil {
			return fmt.Errorf("save health check for %s: %w", p.ID, err)
		}
	}

	if c := p.Collection; c != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO donation_collections (process_id, collected_volume_ml, notes, collected_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (process_id) DO NOTHING`,
			p.ID, c.CollectedVolumeMl, c.Notes, c.CollectedAt,
		)
		if err != nil {
			return fmt.Errorf("save collection for %s: %w", p.ID, err)
		}
	}

	if t := p.TestResult; t != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO donation_test_results (process_id, passed, notes, blood_unit_id, recorded_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (process_id) DO NOTHING`,
			p.ID, t.Passed, t.Notes, t.BloodUnitID, t.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("save test result for %s: %w", p.ID, err)
		}
	}

	if evt != nil {
		if err := RecordEvent(ctx, tx, *evt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]*domain.DonationProcess, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donation processes: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.DonationProcess, 0)
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProcess(row rowScanner) (*domain.DonationProcess, error) {
	var (
		p domain.DonationProcess

		apptID, apptLocation, apptNotes, apptStatus, apptReason, apptReservation sql.NullString
		apptDate                                                                 sql.NullTime
		apptRoom, apptBed                                                        sql.NullInt64

		hcSystolic, hcDiastolic, hcHeartRate sql.NullInt64
		hcTemp, hcWeight, hcHemoglobin       sql.NullFloat64
		hcEligible                           sql.NullBool
		hcNotes                              sql.NullString
		hcCheckedAt                          sql.NullTime

		colVolume      sql.NullInt64
		colNotes       sql.NullString
		colCollectedAt sql.NullTime

		testPassed            sql.NullBool
		testNotes, testUnitID sql.NullString
		testRecordedAt        sql.NullTime
	)

	err := row.Scan(
		&p.ID, &p.DonorID, &p.Donor.FullName, &p.Donor.BloodType, &p.Donor.Email, &p.Donor.Phone,
		&p.DonationType, &p.Status, &p.Note, &p.CreatedAt, &p.UpdatedAt, &p.Version,
		&apptID, &apptDate, &apptLocation, &apptRoom, &apptBed, &apptNotes, &apptStatus,
		&apptReason, &apptReservation,
		&hcSystolic, &hcDiastolic, &hcHeartRate, &hcTemp,
		&hcWeight, &hcHemoglobin, &hcEligible, &hcNotes, &hcCheckedAt,
		&colVolume, &colNotes, &colCollectedAt,
		&testPassed, &testNotes, &testUnitID, &testRecordedAt,
	)
	if err != nil {
		return nil, err
	}

	if apptID.Valid {
		p.Appointment = &domain.Appointment{
			ID:               apptID.String,
			ProcessID:        p.ID,
			ScheduledDate:    apptDate.Time,
			Location:         apptLocation.String,
			RoomNumber:       int(apptRoom.Int64),
			BedNumber:        int(apptBed.Int64),
			Notes:            apptNotes.String,
			Status:           domain.AppointmentStatus(apptStatus.String),
			RescheduleReason: apptReason.String,
			ReservationID:    apptReservation.String,
		}
	}
	if hcEligible.Valid {
		p.HealthCheck = &domain.HealthCheckResult{
			BloodPressureSystolic:  int(hcSystolic.Int64),
			BloodPressureDiastolic: int(hcDiastolic.Int64),
			HeartRate:              int(hcHeartRate.Int64),
			Temperature:            hcTemp.Float64,
			Weight:                 hcWeight.Float64,
			HemoglobinLevel:        hcHemoglobin.Float64,
			IsEligible:             hcEligible.Bool,
			Notes:                  hcNotes.String,
			CheckedAt:              hcCheckedAt.Time,
		}
	}
	if colVolume.Valid {
		p.Collection = &domain.CollectionResult{
			CollectedVolumeMl: int(colVolume.Int64),
			Notes:             colNotes.String,
			CollectedAt:       colCollectedAt.Time,
		}
	}
	if testPassed.Valid {
		p.TestResult = &domain.TestResult{
			Passed:      testPassed.Bool,
			Notes:       testNotes.String,
			BloodUnitID: testUnitID.String,
			RecordedAt:  testRecordedAt.Time,
		}
	}
	return &p, nil
}
