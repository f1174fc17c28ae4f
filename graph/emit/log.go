// Package emit provides graph.Observer implementations: structured logging,
// a no-op sink, in-memory buffering with query support, OpenTelemetry
// tracing, Prometheus metrics, and a fan-out wrapper. Every type here
// satisfies graph.Observer (Notify(ctx, graph.Event)); none of them define
// their own event or observer interface, so a caller can freely mix these
// with hand-written observers in the same graph.WithObservers(...) call.
package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/supersteprun/graph/graph"
)

// LogObserver implements graph.Observer by writing one line per event to an
// io.Writer, in text or JSON mode.
//
// Example text output:
//
//	[node_start] thread=run-001 step=0 node=classify
//
// Example JSON output:
//
//	{"kind":"node_start","thread":"run-001","step":0,"node":"classify"}
type LogObserver struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogObserver writes to writer (os.Stdout if nil) in text mode, or JSON
// mode when jsonMode is true.
func NewLogObserver(writer io.Writer, jsonMode bool) *LogObserver {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogObserver{writer: writer, jsonMode: jsonMode}
}

var _ graph.Observer = (*LogObserver)(nil)

// Notify implements graph.Observer.
func (l *LogObserver) Notify(_ context.Context, event graph.Event) {
	if l.jsonMode {
		l.writeJSON(event)
		return
	}
	l.writeText(event)
}

func (l *LogObserver) writeText(event graph.Event) {
	fmt.Fprintf(l.writer, "[%s] thread=%s step=%d", event.Kind, event.ThreadID, event.Step)
	if event.Node != "" {
		fmt.Fprintf(l.writer, " node=%s", event.Node)
	}
	if event.Duration > 0 {
		fmt.Fprintf(l.writer, " duration=%s", event.Duration)
	}
	if event.Err != nil {
		fmt.Fprintf(l.writer, " error=%q", event.Err.Error())
	}
	if len(event.ActiveNodes) > 0 {
		fmt.Fprintf(l.writer, " active=%v", event.ActiveNodes)
	}
	fmt.Fprintln(l.writer)
}

type logLine struct {
	Kind     string         `json:"kind"`
	ThreadID string         `json:"thread"`
	Step     int            `json:"step"`
	Node     string         `json:"node,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Error    string         `json:"error,omitempty"`
	Active   []string       `json:"active,omitempty"`
	Info     map[string]any `json:"info,omitempty"`
}

func (l *LogObserver) writeJSON(event graph.Event) {
	line := logLine{
		Kind:     string(event.Kind),
		ThreadID: event.ThreadID,
		Step:     event.Step,
		Node:     event.Node,
		Active:   event.ActiveNodes,
		Info:     event.Info,
	}
	if event.Duration > 0 {
		line.Duration = event.Duration.String()
	}
	if event.Err != nil {
		line.Error = event.Err.Error()
	}
	data, err := json.Marshal(line)
	if err != nil {
		fmt.Fprintf(l.writer, `{"kind":"marshal_error","error":%q}`+"\n", err.Error())
		return
	}
	l.writer.Write(append(data, '\n'))
}
