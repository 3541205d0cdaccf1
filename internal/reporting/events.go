package reporting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of run event
type EventType string

const (
	// Stabilization lifecycle events
	EventTypePhaseChange EventType = "stabilize.phase_change"
	EventTypeProbe       EventType = "stabilize.probe"
	EventTypeResetCycle  EventType = "stabilize.reset_cycle"

	// Drill lifecycle events
	EventTypeScenarioStart  EventType = "drill.scenario_start"
	EventTypeScenarioResult EventType = "drill.scenario_result"
	EventTypeFailover       EventType = "drill.failover"
	EventTypeWorkloadTask   EventType = "drill.workload_task"

	// Fixture events
	EventTypeFixtureAcquired EventType = "fixture.acquired"
	EventTypeFixtureReleased EventType = "fixture.released"
)

// EventSeverity indicates the importance/severity of an event
type EventSeverity string

const (
	SeverityDebug EventSeverity = "debug"
	SeverityInfo  EventSeverity = "info"
	SeverityWarn  EventSeverity = "warn"
	SeverityError EventSeverity = "error"
)

// Event is one observable moment of a drill run. Events carry the
// run's correlation ID so everything belonging to one run can be
// traced through interleaved output.
type Event struct {
	Type          EventType     `json:"type"`
	Source        string        `json:"source"`
	Timestamp     time.Time     `json:"timestamp"`
	Severity      EventSeverity `json:"severity"`
	CorrelationID string        `json:"correlation_id"`
	Message       string        `json:"message"`
	Err           error         `json:"-"`
	ErrorDetail   string        `json:"error,omitempty"`
}

// String returns a human-readable description of the event.
func (e Event) String() string {
	if e.ErrorDetail != "" {
		return fmt.Sprintf("[%s] %s: %s (error: %s)", e.Type, e.Source, e.Message, e.ErrorDetail)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// GenerateCorrelationID returns a fresh run identifier.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// NewEvent builds an event with the timestamp set.
func NewEvent(eventType EventType, source string, severity EventSeverity, correlationID, messageFmt string, args ...interface{}) Event {
	return Event{
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now(),
		Severity:      severity,
		CorrelationID: correlationID,
		Message:       fmt.Sprintf(messageFmt, args...),
	}
}

// WithError attaches err to the event and raises its severity to
// error. A nil err leaves the event unchanged.
func (e Event) WithError(err error) Event {
	if err == nil {
		return e
	}
	e.Err = err
	e.ErrorDetail = err.Error()
	e.Severity = SeverityError
	return e
}

// Reporter receives run events. Implementations must be safe for
// concurrent use: workload tasks report from many goroutines.
type Reporter interface {
	Report(event Event)
}
