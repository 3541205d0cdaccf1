package reporting

import (
	"time"

	"clusterdrill/pkg/logging"
)

// ConsoleReporter logs run events through the pkg/logging package.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new ConsoleReporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// Report logs the event at a level matching its severity.
func (c *ConsoleReporter) Report(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = GenerateCorrelationID()
	}

	subsystem := event.Source
	if subsystem == "" {
		subsystem = string(event.Type)
	}

	logMessage := event.Message
	if event.CorrelationID != "" {
		logMessage += ", CorrelationID: " + event.CorrelationID
	}

	switch {
	case event.Err != nil:
		logging.Error(subsystem, event.Err, "%s", logMessage)
	case event.Severity == SeverityError:
		logging.Error(subsystem, nil, "%s", logMessage)
	case event.Severity == SeverityWarn:
		logging.Warn(subsystem, "%s", logMessage)
	case event.Severity == SeverityDebug:
		logging.Debug(subsystem, "%s", logMessage)
	default:
		logging.Info(subsystem, "%s", logMessage)
	}
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) Report(Event) {}
