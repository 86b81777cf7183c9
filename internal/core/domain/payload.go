package domain

import (
	"strings"
	"time"
)

const (
	MinCollectionVolumeMl = 100
	MaxCollectionVolumeMl = 500
)

// Payload is the input attached to a transition.
type Payload interface {
	Validate() error
}

type CreateRequestInput struct {
	DonorID      string
	Donor        Donor
	DonationType DonationType
	Note         string
}

func (in CreateRequestInput) Validate() error {
	if strings.TrimSpace(in.DonorID) == "" {
		return NewValidationError("donor id is required")
	}
	if in.DonationType != "" && !in.DonationType.IsValid() {
		return NewValidationError("unknown donation type %q", in.DonationType)
	}
	return nil
}

type RejectInput struct {
	Note string
}

func (in RejectInput) Validate() error {
	if strings.TrimSpace(in.Note) == "" {
		return NewValidationError("rejection note is required")
	}
	return nil
}

type ScheduleInput struct {
	ScheduledDate time.Time
	Location      string
	RoomNumber    int
	BedNumber     int
	Notes         string
}

func (in ScheduleInput) Validate() error {
	if in.ScheduledDate.IsZero() {
		return NewValidationError("appointment date is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return NewValidationError("location is required")
	}
	if in.RoomNumber <= 0 {
		return NewValidationError("room number must be positive")
	}
	if in.BedNumber <= 0 {
		return NewValidationError("bed number must be positive")
	}
	return nil
}

type RescheduleInput struct {
	Reason string
}

func (in RescheduleInput) Validate() error {
	if strings.TrimSpace(in.Reason) == "" {
		return NewValidationError("reschedule reason is required")
	}
	return nil
}

type HealthCheckInput struct {
	BloodPressureSystolic  int
	BloodPressureDiastolic int
	HeartRate              int
	Temperature            float64
	Weight                 float64
	HemoglobinLevel        float64
	IsEligible             bool
	Notes                  string
}

func (in HealthCheckInput) Validate() error {
	switch {
	case in.BloodPressureSystolic <= 0:
		return NewValidationError("systolic pressure must be positive")
	case in.BloodPressureDiastolic <= 0:
		return NewValidationError("diastolic pressure must be positive")
	case in.HeartRate <= 0:
		return NewValidationError("heart rate must be positive")
	case in.Temperature <= 0:
		return NewValidationError("temperature must be positive")
	case in.Weight <= 0:
		return NewValidationError("weight must be positive")
	case in.HemoglobinLevel <= 0:
		return NewValidationError("hemoglobin level must be positive")
	}
	return nil
}

type CollectionInput struct {
	CollectedVolumeMl int
	Notes             string
}

func (in CollectionInput) Validate() error {
	if in.CollectedVolumeMl < MinCollectionVolumeMl || in.CollectedVolumeMl > MaxCollectionVolumeMl {
		return NewValidationError("collected volume must be between %d and %d ml, got %d",
			MinCollectionVolumeMl, MaxCollectionVolumeMl, in.CollectedVolumeMl)
	}
	return nil
}

type TestResultInput struct {
	Passed      bool
	Notes       string
	BloodUnitID string
}

func (in TestResultInput) Validate() error {
	if strings.TrimSpace(in.Notes) == "" {
		return NewValidationError("lab notes are required")
	}
	return nil
}

type CancelInput struct {
	Reason string
}

func (in CancelInput) Validate() error {
	if strings.TrimSpace(in.Reason) == "" {
		return NewValidationError("cancellation reason is required")
	}
	return nil
}
