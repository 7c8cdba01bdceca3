// Package agent implements the CIM analysis agents. Each agent owns one
// (prompt, parse, validate) triple behind a single Execute operation that
// never lets a failure escape as a panic or error return: the Result's
// status is the only success/failure channel.
package agent

import (
	"context"
	"fmt"
	"time"
)

// Completer is the model invocation boundary an agent depends on. The label
// identifies the calling agent for observability.
type Completer interface {
	Complete(ctx context.Context, prompt, label string) (string, error)
}

// Status is the outcome of one agent execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the immutable outcome of one agent invocation.
type Result struct {
	Agent  string   `json:"agent"`
	Status Status   `json:"status"`
	Output any      `json:"output,omitempty"` // schema-conformant, nil on error
	Err    string   `json:"error,omitempty"`
	Log    []string `json:"log,omitempty"`
	// Notes records the defaults and coercions the validator applied.
	Notes []string `json:"normalization_notes,omitempty"`
}

// Context carries the validated outputs of already-run agents to later
// agents. Only the orchestrator writes it, and only additively.
type Context struct {
	FinancialMetrics []FinancialMetric
	Risks            *RiskAnalysis
	Consistency      *ConsistencyAnalysis
}

// Agent is a single analysis unit over CIM text.
type Agent interface {
	Name() string
	Execute(ctx context.Context, text string, actx *Context) Result
}

// trace accumulates timestamped log lines for a Result.
type trace struct {
	lines []string
}

func (t *trace) logf(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...)))
}

// execute runs the shared agent sequence: build prompt, invoke model, parse
// and normalize. Panics in parse become error results — Execute never
// propagates an exception across its boundary.
func execute(ctx context.Context, model Completer, name, prompt string, parse func(raw string) (any, []string, error)) (result Result) {
	tr := &trace{}
	result = Result{Agent: name, Status: StatusError}

	defer func() {
		if r := recover(); r != nil {
			tr.logf("panic recovered: %v", r)
			result = Result{
				Agent:  name,
				Status: StatusError,
				Err:    fmt.Sprintf("internal error: %v", r),
				Log:    tr.lines,
			}
		}
	}()

	tr.logf("starting execution for %s", name)
	tr.logf("prompt built (%d chars)", len(prompt))

	raw, err := model.Complete(ctx, prompt, name)
	if err != nil {
		tr.logf("model call failed: %s", err)
		result.Err = fmt.Sprintf("model invocation: %s", err)
		result.Log = tr.lines
		return result
	}
	tr.logf("model response received (%d chars)", len(raw))

	output, notes, err := parse(raw)
	if err != nil {
		tr.logf("parse failed: %s", err)
		result.Err = fmt.Sprintf("parse response: %s", err)
		result.Log = tr.lines
		return result
	}
	tr.logf("response parsed and normalized (%d adjustments)", len(notes))

	return Result{
		Agent:  name,
		Status: StatusSuccess,
		Output: output,
		Log:    tr.lines,
		Notes:  notes,
	}
}

// truncateText bounds prompt input to an agent's character budget.
func truncateText(text string, budget int) string {
	if len(text) <= budget {
		return text
	}
	return text[:budget]
}
