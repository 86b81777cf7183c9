package domain

type Transition string

const (
	TransitionApprove           Transition = "approve"
	TransitionReject            Transition = "reject"
	TransitionSchedule          Transition = "schedule"
	TransitionRequestReschedule Transition = "requestReschedule"
	TransitionRecordHealthCheck Transition = "recordHealthCheck"
	TransitionCollectBlood      Transition = "collectBlood"
	TransitionRecordTest        Transition = "recordTest"
	TransitionComplete          Transition = "complete"
	TransitionCancel            Transition = "cancel"
)

var allTransitions = []Transition{
	TransitionApprove,
	TransitionReject,
	TransitionSchedule,
	TransitionRequestReschedule,
	TransitionRecordHealthCheck,
	TransitionCollectBlood,
	TransitionRecordTest,
	TransitionComplete,
	TransitionCancel,
}

func (t Transition) IsValid() bool {
	for _, known := range allTransitions {
		if t == known {
			return true
		}
	}
	return false
}

// Edge is one row of the transition table.
type Edge struct {
	From       Status
	Transition Transition
	To         Status
}

// transitionTable is the only place that decides which moves are legal.
var transitionTable = buildTransitionTable()

func buildTransitionTable() []Edge {
	edges := []Edge{
		{StatusPendingApproval, TransitionApprove, StatusAppointmentPending},
		{StatusPendingApproval, TransitionReject, StatusRejected},
		{StatusAppointmentPending, TransitionSchedule, StatusAppointmentScheduled},
		{StatusRescheduleRequested, TransitionSchedule, StatusAppointmentScheduled},
		{StatusAppointmentScheduled, TransitionRequestReschedule, StatusRescheduleRequested},
		{StatusAppointmentScheduled, TransitionRecordHealthCheck, StatusHealthCheckPassed},
		{StatusAppointmentScheduled, TransitionRecordHealthCheck, StatusHealthCheckFailed},
		{StatusHealthCheckPassed, TransitionCollectBlood, StatusBloodCollected},
		{StatusBloodCollected, TransitionRecordTest, StatusTestingPassed},
		{StatusBloodCollected, TransitionRecordTest, StatusTestingFailed},
		{StatusTestingPassed, TransitionComplete, StatusCompleted},
	}
	for _, s := range AllStatuses {
		if !s.IsTerminal() {
			edges = append(edges, Edge{s, TransitionCancel, StatusCancelled})
		}
	}
	return edges
}

// TransitionTable returns a copy of the table.
func TransitionTable() []Edge {
	return append([]Edge(nil), transitionTable...)
}

// Targets lists the states transition t may lead to from status from.
// An empty result means t is not permitted there.
func Targets(from Status, t Transition) []Status {
	var out []Status
	for _, e := range transitionTable {
		if e.From == from && e.Transition == t {
			out = append(out, e.To)
		}
	}
	return out
}

func IsAllowed(from Status, t Transition) bool {
	return len(Targets(from, t)) > 0
}

// CanTransition reports whether the exact edge from -t-> to is in the table.
func CanTransition(from Status, t Transition, to Status) bool {
	for _, e := range transitionTable {
		if e.From == from && e.Transition == t && e.To == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the distinct transitions available from
// status, in table order. It is empty for terminal states.
func AllowedTransitions(from Status) []Transition {
	out := []Transition{}
	seen := make(map[Transition]bool)
	for _, e := range transitionTable {
		if e.From == from && !seen[e.Transition] {
			seen[e.Transition] = true
			out = append(out, e.Transition)
		}
	}
	return out
}
