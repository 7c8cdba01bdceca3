package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/coveview/dealscan/internal/agent"
	"github.com/coveview/dealscan/internal/parser"
)

// Worker processes a single analysis job: parse the file, run the agent
// pipeline, record the report.
type Worker struct {
	runner      *Runner
	log         *slog.Logger
	pdfFallback bool
}

func NewWorker(runner *Runner, log *slog.Logger, pdfFallback bool) *Worker {
	return &Worker{runner: runner, log: log, pdfFallback: pdfFallback}
}

// Process runs the full analysis for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "deal_id", job.DealID)

	job.SetStatus(StatusExtracting, "extracting_text")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extracting_text")
		return
	}
	if pdf, ok := p.(*parser.PDFParser); ok {
		pdf.FallbackPdftotext = w.pdfFallback
	}

	text, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("text extraction failed", "error", err)
		job.AddError(fmt.Sprintf("extract text: %s", err))
		job.SetStatus(StatusFailed, "extracting_text")
		return
	}
	job.ContentHash = ContentHashHex([]byte(text))

	job.SetStatus(StatusAnalyzing, "analyzing")
	if job.Chunked {
		report := w.runner.RunChunkedPipeline(ctx, text, job.DealID)
		job.SetChunkedReport(&report)
		failed := 0
		for _, r := range report.Reports {
			if r.Status != RunComplete {
				failed++
			}
		}
		w.finish(job, len(report.Reports) > 0 && failed == 0, failed < len(report.Reports))
		log.Info("chunked analysis complete", "chunks", len(report.Chunks), "failed_passes", failed)
		return
	}

	report := w.runner.RunPipeline(ctx, text, job.DealID)
	job.SetReport(&report)
	for _, e := range report.Errors {
		job.AddError(e)
	}
	succeeded := 0
	for _, res := range report.Results {
		if res.Status == agent.StatusSuccess {
			succeeded++
		}
	}
	w.finish(job, report.Status == RunComplete, succeeded > 0)
	log.Info("analysis complete", "status", report.Status, "agents_ok", succeeded)
}

func (w *Worker) finish(job *Job, clean, partial bool) {
	switch {
	case clean:
		job.SetStatus(StatusCompleted, "done")
	case partial:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "analyzing")
	}
}
