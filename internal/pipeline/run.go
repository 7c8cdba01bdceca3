// Package pipeline sequences the CIM analysis agents over a document,
// threads validated outputs between them, and aggregates per-agent status
// into a run report. Agent failures are contained per slot; only an empty
// document aborts a run before any agent executes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coveview/dealscan/internal/agent"
	"github.com/coveview/dealscan/internal/chunker"
	"github.com/coveview/dealscan/internal/document"
	"github.com/coveview/dealscan/internal/store"
)

// RunStatus is the terminal status of one orchestration pass.
type RunStatus string

const (
	RunComplete RunStatus = "complete"
	RunError    RunStatus = "error"
)

// Run states, recorded in order on the report.
const (
	StateStarted       = "started"
	StateTextExtracted = "text_extracted"
)

// RunReport aggregates one orchestration pass across all agents. Immutable
// once returned.
type RunReport struct {
	DealID  string                  `json:"deal_id"`
	Status  RunStatus               `json:"status"`
	Results map[string]agent.Result `json:"results"`
	Errors  []string                `json:"errors"`
	// States is the ordered state trace of the run.
	States      []string  `json:"states"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// ChunkedRunReport is the fan-out variant: every chunk gets its own full
// agent pass.
type ChunkedRunReport struct {
	DealID  string           `json:"deal_id"`
	Chunks  []document.Chunk `json:"chunks"`
	Reports []RunReport      `json:"per_chunk_results"`
}

// Runner executes the fixed agent sequence for one document at a time.
// Concurrent runs for the same deal id are the caller's responsibility to
// serialize; runs for different deals share no mutable state.
type Runner struct {
	financial   *agent.FinancialAgent
	risk        *agent.RiskAgent
	consistency *agent.ConsistencyAgent
	memo        *agent.MemoAgent
	quote       *agent.QuoteAgent
	chart       *agent.ChartAgent

	records  *store.Client
	log      *slog.Logger
	chunkCfg chunker.Config
}

// NewRunner wires the six agents to one model adapter. records may be nil,
// in which case outputs are not persisted.
func NewRunner(model agent.Completer, records *store.Client, log *slog.Logger, chunkCfg chunker.Config) *Runner {
	return &Runner{
		financial:   agent.NewFinancialAgent(model),
		risk:        agent.NewRiskAgent(model),
		consistency: agent.NewConsistencyAgent(model),
		memo:        agent.NewMemoAgent(model),
		quote:       agent.NewQuoteAgent(model),
		chart:       agent.NewChartAgent(model),
		records:     records,
		log:         log,
		chunkCfg:    chunkCfg,
	}
}

// RunPipeline executes every agent over the full document text and returns
// the aggregate report. The only fatal precondition is empty text; per-agent
// failures are recorded and the run continues.
func (r *Runner) RunPipeline(ctx context.Context, text, dealID string) RunReport {
	report := RunReport{
		DealID:    dealID,
		Results:   make(map[string]agent.Result),
		States:    []string{StateStarted},
		StartedAt: time.Now(),
	}
	log := r.log.With("deal_id", dealID)

	if strings.TrimSpace(text) == "" {
		log.Error("empty document text, aborting run")
		report.Status = RunError
		report.Errors = append(report.Errors, "document text is empty, no agents run")
		report.States = append(report.States, string(RunError))
		report.CompletedAt = time.Now()
		return report
	}
	report.States = append(report.States, StateTextExtracted)

	r.runAgents(ctx, text, &report, log)

	report.Status = RunComplete
	if len(report.Errors) > 0 {
		report.Status = RunError
	}
	report.States = append(report.States, string(report.Status))
	report.CompletedAt = time.Now()

	if r.records != nil {
		r.persist(ctx, dealID, &report, log)
	}
	return report
}

// runAgents executes the dependency chain financial → risk → consistency →
// memo, with quote and chart running concurrently since they share only
// read access to the text.
func (r *Runner) runAgents(ctx context.Context, text string, report *RunReport, log *slog.Logger) {
	var quoteRes, chartRes agent.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quoteRes = r.quote.Execute(gctx, text, nil)
		return nil
	})
	g.Go(func() error {
		chartRes = r.chart.Execute(gctx, text, nil)
		return nil
	})

	actx := &agent.Context{}
	chain := []agent.Agent{r.financial, r.risk, r.consistency, r.memo}
	for _, a := range chain {
		// Cooperative cancellation checkpoint between agent steps.
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: run cancelled: %s", a.Name(), err))
			break
		}
		report.States = append(report.States, "running:"+a.Name())
		res := r.record(report, a.Execute(ctx, text, actx), log)
		if res.Status != agent.StatusSuccess {
			continue
		}
		// Merge validated output into context, additively.
		switch out := res.Output.(type) {
		case []agent.FinancialMetric:
			actx.FinancialMetrics = out
		case *agent.RiskAnalysis:
			actx.Risks = out
		case *agent.ConsistencyAnalysis:
			actx.Consistency = out
		}
	}

	report.States = append(report.States, "running:quote", "running:chart")
	g.Wait()
	r.record(report, quoteRes, log)
	r.record(report, chartRes, log)
}

func (r *Runner) record(report *RunReport, res agent.Result, log *slog.Logger) agent.Result {
	report.Results[res.Agent] = res
	if res.Status != agent.StatusSuccess {
		log.Error("agent failed", "agent", res.Agent, "error", res.Err)
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", res.Agent, res.Err))
	} else {
		log.Info("agent complete", "agent", res.Agent, "adjustments", len(res.Notes))
	}
	return res
}

// RunChunkedPipeline splits the document and fans every chunk out to the
// full agent set. Chunk metadata is persisted before analysis; chunks are
// marked processed afterwards.
func (r *Runner) RunChunkedPipeline(ctx context.Context, text, dealID string) ChunkedRunReport {
	chunks := chunker.Chunk(text, r.chunkCfg)
	out := ChunkedRunReport{
		DealID:  dealID,
		Chunks:  chunks,
		Reports: make([]RunReport, 0, len(chunks)),
	}

	if r.records != nil {
		r.persistChunks(ctx, dealID, chunks)
	}

	for i := range chunks {
		report := r.RunPipeline(ctx, chunks[i].Text, dealID)
		out.Reports = append(out.Reports, report)
		out.Chunks[i].Processed = true
		if ctx.Err() != nil {
			break
		}
	}
	return out
}
