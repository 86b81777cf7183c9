package ports

import (
	"time"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
)

type WorkflowMetrics interface {
	ObserveTransition(t domain.Transition, result string, elapsed time.Duration)
	ObserveReservation(result string)
}

type NopMetrics struct{}

func (NopMetrics) ObserveTransition(domain.Transition, string, time.Duration) {}
func (NopMetrics) ObserveReservation(string)                                  {}
