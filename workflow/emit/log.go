package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter writes structured event output to a writer.
//
// Two output modes:
//   - Text (default): one human-readable line per event with key=value pairs
//   - JSON: one JSON object per line (JSONL)
//
// Example text output:
//
//	[task_completed] workflow=wf-9f2 task=t-11 data={"task_name":"analyze"}
//
// Example JSON output:
//
//	{"type":"task_completed","workflow_id":"wf-9f2","task_id":"t-11","data":{"task_name":"analyze"},"time":"..."}
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer (os.Stdout if nil).
// With jsonMode, events are emitted as JSONL instead of text.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes the event in the configured format.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Type       string         `json:"type"`
		WorkflowID string         `json:"workflow_id"`
		TaskID     string         `json:"task_id,omitempty"`
		Data       map[string]any `json:"data,omitempty"`
		Time       string         `json:"time"`
	}{
		Type:       event.Type,
		WorkflowID: event.WorkflowID,
		TaskID:     event.TaskID,
		Data:       event.Data,
		Time:       event.Time.Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] workflow=%s", event.Type, event.WorkflowID)
	if event.TaskID != "" {
		fmt.Fprintf(l.writer, " task=%s", event.TaskID)
	}
	if len(event.Data) > 0 {
		if dataJSON, err := json.Marshal(event.Data); err == nil {
			fmt.Fprintf(l.writer, " data=%s", dataJSON)
		} else {
			fmt.Fprintf(l.writer, " data=%v", event.Data)
		}
	}
	fmt.Fprint(l.writer, "\n")
}
