package domain

import "time"

type Status string

const (
	StatusPendingApproval      Status = "PENDING_APPROVAL"
	StatusAppointmentPending   Status = "APPOINTMENT_PENDING"
	StatusAppointmentScheduled Status = "APPOINTMENT_SCHEDULED"
	StatusRescheduleRequested  Status = "RESCHEDULE_REQUESTED"
	StatusHealthCheckPassed    Status = "HEALTH_CHECK_PASSED"
	StatusHealthCheckFailed    Status = "HEALTH_CHECK_FAILED"
	StatusBloodCollected       Status = "BLOOD_COLLECTED"
	StatusTestingPassed        Status = "TESTING_PASSED"
	StatusTestingFailed        Status = "TESTING_FAILED"
	StatusCompleted            Status = "COMPLETED"
	StatusRejected             Status = "REJECTED"
	StatusCancelled            Status = "CANCELLED"
)

// AllStatuses lists every workflow state in lifecycle order.
var AllStatuses = []Status{
	StatusPendingApproval,
	StatusAppointmentPending,
	StatusAppointmentScheduled,
	StatusRescheduleRequested,
	StatusHealthCheckPassed,
	StatusHealthCheckFailed,
	StatusBloodCollected,
	StatusTestingPassed,
	StatusTestingFailed,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
}

func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition can leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusHealthCheckFailed, StatusTestingFailed:
		return true
	}
	return false
}

type DonationType string

const (
	DonationStandard  DonationType = "STANDARD"
	DonationEmergency DonationType = "EMERGENCY"
)

func (t DonationType) IsValid() bool {
	return t == DonationStandard || t == DonationEmergency
}

type AppointmentStatus string

const (
	AppointmentScheduled           AppointmentStatus = "SCHEDULED"
	AppointmentRescheduleRequested AppointmentStatus = "RESCHEDULE_REQUESTED"
)

// Donor is a display snapshot of the donor identity, which is owned by the
// user service and referenced by ID.
type Donor struct {
	FullName  string `json:"fullName,omitempty"`
	BloodType string `json:"bloodType,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type DonationProcess struct {
	ID           string             `json:"id"`
	DonorID      string             `json:"donorId"`
	Donor        Donor              `json:"donor"`
	DonationType DonationType       `json:"donationType"`
	Status       Status             `json:"status"`
	Note         string             `json:"note"`
	Appointment  *Appointment       `json:"appointment,omitempty"`
	HealthCheck  *HealthCheckResult `json:"healthCheck,omitempty"`
	Collection   *CollectionResult  `json:"collection,omitempty"`
	TestResult   *TestResult        `json:"testResult,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	Version      int64              `json:"version"`
}

type Appointment struct {
	ID               string            `json:"id"`
	ProcessID        string            `json:"processId"`
	ScheduledDate    time.Time         `json:"scheduledDate"`
	Location         string            `json:"location"`
	RoomNumber       int               `json:"roomNumber"`
	BedNumber        int               `json:"bedNumber"`
	Notes            string            `json:"notes,omitempty"`
	Status           AppointmentStatus `json:"status"`
	RescheduleReason string            `json:"rescheduleReason,omitempty"`
	ReservationID    string            `json:"reservationId,omitempty"`
}

type HealthCheckResult struct {
	BloodPressureSystolic  int       `json:"bloodPressureSystolic"`
	BloodPressureDiastolic int       `json:"bloodPressureDiastolic"`
	HeartRate              int       `json:"heartRate"`
	Temperature            float64   `json:"temperature"`
	Weight                 float64   `json:"weight"`
	HemoglobinLevel        float64   `json:"hemoglobinLevel"`
	IsEligible             bool      `json:"isEligible"`
	Notes                  string    `json:"notes,omitempty"`
	CheckedAt              time.Time `json:"checkedAt"`
}

type CollectionResult struct {
	CollectedVolumeMl int       `json:"collectedVolumeMl"`
	Notes             string    `json:"notes,omitempty"`
	CollectedAt       time.Time `json:"collectedAt"`
}

type TestResult struct {
	Passed      bool      `json:"passed"`
	Notes       string    `json:"notes"`
	BloodUnitID string    `json:"bloodUnitId,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// Clone returns a deep copy so callers never share sub-entity pointers with
// the store.
func (p *DonationProcess) Clone() *DonationProcess {
	if p == nil {
		return nil
	}
	c := *p
	if p.Appointment != nil {
		a := *p.Appointment
		c.Appointment = &a
	}
	if p.HealthCheck != nil {
		h := *p.HealthCheck
		c.HealthCheck = &h
	}
	if p.Collection != nil {
		col := *p.Collection
		c.Collection = &col
	}
	if p.TestResult != nil {
		t := *p.TestResult
		c.TestResult = &t
	}
	return &c
}

// stageOf returns how many sub-entities a process in status s must carry,
// in the order appointment, health check, collection, test result.
func stageOf(s Status) int {
	switch s {
	case StatusAppointmentScheduled, StatusRescheduleRequested:
		return 1
	case StatusHealthCheckPassed, StatusHealthCheckFailed:
		return 2
	case StatusBloodCollected:
		return 3
	case StatusTestingPassed, StatusTestingFailed, StatusCompleted:
		return 4
	}
	return 0
}

// CheckStageInvariant verifies that the attached sub-entities match the
// current status. A cancelled process keeps whatever it had collected, so
// only contiguity is checked for it.
func (p *DonationProcess) CheckStageInvariant() error {
	present := []bool{
		p.Appointment != nil,
		p.HealthCheck != nil,
		p.Collection != nil,
		p.TestResult != nil,
	}

	if p.Status == StatusCancelled {
		seenGap := false
		for _, ok := range present {
			if !ok {
				seenGap = true
				continue
			}
			if seenGap {
				return NewValidationError("process %s has sub-entities out of stage order", p.ID)
			}
		}
		return nil
	}

	required := stageOf(p.Status)
	for i, ok := range present {
		if ok != (i < required) {
			return NewValidationError("process %s in status %s has inconsistent stage records", p.ID, p.Status)
		}
	}
	return nil
}
