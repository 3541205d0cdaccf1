package reporting

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent_FillsTimestampAndMessage(t *testing.T) {
	runID := GenerateCorrelationID()
	event := NewEvent(EventTypeResetCycle, "stabilize", SeverityInfo, runID, "flushed %d masters", 3)

	assert.Equal(t, EventTypeResetCycle, event.Type)
	assert.Equal(t, "stabilize", event.Source)
	assert.Equal(t, SeverityInfo, event.Severity)
	assert.Equal(t, runID, event.CorrelationID)
	assert.Equal(t, "flushed 3 masters", event.Message)
	assert.False(t, event.Timestamp.IsZero())
	assert.Empty(t, event.ErrorDetail)
}

func TestEvent_WithError(t *testing.T) {
	boom := errors.New("node 127.0.0.1:7000: flushall: timeout")
	event := NewEvent(EventTypeResetCycle, "stabilize", SeverityInfo, "run-1", "reset cycle failed").WithError(boom)

	assert.Equal(t, SeverityError, event.Severity)
	assert.Equal(t, boom, event.Err)
	assert.Contains(t, event.ErrorDetail, "flushall")
	assert.Contains(t, event.String(), "flushall")

	unchanged := NewEvent(EventTypeProbe, "stabilize", SeverityDebug, "run-1", "probing").WithError(nil)
	assert.Equal(t, SeverityDebug, unchanged.Severity)
	assert.Nil(t, unchanged.Err)
}

func TestGenerateCorrelationID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateCorrelationID()
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "correlation ID repeated: %s", id)
		seen[id] = true
	}
}

func TestRecorder_ConcurrentReports(t *testing.T) {
	rec := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Report(NewEvent(EventTypeWorkloadTask, "workload", SeverityDebug, "run-1", "task done"))
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Events(), 50)
	assert.Len(t, rec.ByType(EventTypeWorkloadTask), 50)
	assert.Empty(t, rec.ByType(EventTypeFailover))
}
