package provisioning

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Observer receives structured events as the workflow executes. The audit
// trail it produces must distinguish skipped nodes from executed ones.
type Observer interface {
	// Printf logs an unstructured message.
	Printf(format string, v ...interface{})

	// Event emits a structured event.
	Event(event Event)
}

// Event represents a structured workflow event.
type Event struct {
	Type      EventType
	Node      string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of workflow event.
type EventType string

const (
	// EventNodeStarted indicates a graph node began executing.
	EventNodeStarted EventType = "node.started"
	// EventNodeSucceeded indicates a graph node completed successfully.
	EventNodeSucceeded EventType = "node.succeeded"
	// EventNodeFailed indicates a graph node failed terminally.
	EventNodeFailed EventType = "node.failed"
	// EventNodeSkipped indicates a node's guard predicate evaluated false.
	EventNodeSkipped EventType = "node.skipped"
	// EventNodeBlocked indicates a node never ran because a dependency failed.
	EventNodeBlocked EventType = "node.blocked"

	// EventResourceDeleted indicates an external resource was removed.
	EventResourceDeleted EventType = "resource.deleted"

	// EventRunCompleted indicates the whole run converged.
	EventRunCompleted EventType = "run.completed"
	// EventRunFailed indicates the run halted on a failure.
	EventRunFailed EventType = "run.failed"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	log.Print(formatEvent(event))
}

func formatEvent(event Event) string {
	parts := []string{string(event.Type)}
	if event.Node != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Node))
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}
	if len(event.Fields) > 0 {
		var fieldParts []string
		for k, v := range event.Fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, v))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}
	return strings.Join(parts, " ")
}
