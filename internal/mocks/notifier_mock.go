package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// MockTransitionNotifier implements ports.TransitionNotifier and records
// every event it is given.
type MockTransitionNotifier struct {
	mu sync.RWMutex

	Events []ports.TransitionEvent

	// Error injection; the event is still recorded.
	NotifyError error

	NotifyCallCount int
}

var _ ports.TransitionNotifier = (*MockTransitionNotifier)(nil)

func NewMockTransitionNotifier() *MockTransitionNotifier {
	return &MockTransitionNotifier{
		Events: make([]ports.TransitionEvent, 0),
	}
}

func (m *MockTransitionNotifier) Notify(ctx context.Context, evt ports.TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.NotifyCallCount++
	m.Events = append(m.Events, evt)
	return m.NotifyError
}

// GetEvents returns a copy of the recorded events.
func (m *MockTransitionNotifier) GetEvents() []ports.TransitionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]ports.TransitionEvent, len(m.Events))
	copy(events, m.Events)
	return events
}

func (m *MockTransitionNotifier) GetNotifyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.NotifyCallCount
}

func (m *MockTransitionNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = make([]ports.TransitionEvent, 0)
	m.NotifyError = nil
	m.NotifyCallCount = 0
}

// MockTransitionPublisher implements ports.TransitionPublisher for relay
// tests that run without RabbitMQ.
type MockTransitionPublisher struct {
	mu sync.RWMutex

	PublishedEvents []ports.TransitionEvent
	PublishError    error

	// OnPublish runs before each publish, outside the mock's lock.
	OnPublish func(evt ports.TransitionEvent)

	PublishCallCount int
}

var _ ports.TransitionPublisher = (*MockTransitionPublisher)(nil)

func NewMockTransitionPublisher() *MockTransitionPublisher {
	return &MockTransitionPublisher{
		PublishedEvents: make([]ports.TransitionEvent, 0),
	}
}

func (m *MockTransitionPublisher) PublishTransition(ctx context.Context, evt ports.TransitionEvent) error {
	m.mu.RLock()
	hook := m.OnPublish
	m.mu.RUnlock()
	if hook != nil {
		hook(evt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

func (m *MockTransitionPublisher) GetPublishedEvents() []ports.TransitionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]ports.TransitionEvent, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}

func (m *MockTransitionPublisher) GetPublishCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}
