package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/coveview/dealscan/internal/agent"
	"github.com/coveview/dealscan/internal/document"
	"github.com/coveview/dealscan/internal/store"
)

// Record store tables. The pipeline only ever appends to them.
const (
	TableDealMetrics    = "deal_metrics"
	TableAIOutputs      = "ai_outputs"
	TableCIMAnalysis    = "cim_analysis"
	TableDocumentQuotes = "document_quotes"
	TableChartElements  = "chart_elements"
	TableAgentLogs      = "agent_logs"
	TableDocumentChunks = "document_chunks"
)

// persist writes every successful agent's validated output plus all agent
// logs. Store failures never change agent results; they are appended to the
// report's error list only.
func (r *Runner) persist(ctx context.Context, dealID string, report *RunReport, log *slog.Logger) {
	now := time.Now().UTC().Format(time.RFC3339)

	for name, res := range report.Results {
		r.insert(ctx, report, log, TableAgentLogs, []map[string]any{{
			"deal_id":    dealID,
			"agent_name": name,
			"status":     string(res.Status),
			"log":        strings.Join(res.Log, "\n"),
			"error":      res.Err,
			"created_at": now,
		}})
		if res.Status != agent.StatusSuccess {
			continue
		}

		switch out := res.Output.(type) {
		case []agent.FinancialMetric:
			records := make([]map[string]any, 0, len(out))
			for _, m := range out {
				records = append(records, map[string]any{
					"deal_id":          dealID,
					"metric_name":      m.MetricName,
					"metric_value":     m.MetricValue,
					"metric_type":      m.MetricType,
					"time_period":      m.TimePeriod,
					"source_section":   m.SourceSection,
					"confidence_score": m.ConfidenceScore,
					"created_at":       now,
				})
			}
			r.insert(ctx, report, log, TableDealMetrics, records)

		case *agent.RiskAnalysis, *agent.ConsistencyAnalysis:
			r.insert(ctx, report, log, TableAIOutputs, []map[string]any{{
				"deal_id":    dealID,
				"agent_name": name,
				"output":     out,
				"created_at": now,
			}})

		case *agent.InvestmentMemo:
			r.insert(ctx, report, log, TableCIMAnalysis, []map[string]any{{
				"deal_id":          dealID,
				"investment_grade": out.InvestmentGrade,
				"analysis":         out,
				"confidence_score": out.ConfidenceScore,
				"created_at":       now,
			}})

		case *agent.QuoteAnalysis:
			records := make([]map[string]any, 0, len(out.Quotes))
			for _, q := range out.Quotes {
				records = append(records, map[string]any{
					"deal_id":            dealID,
					"quote_text":         q.QuoteText,
					"speaker":            q.Speaker,
					"speaker_title":      q.SpeakerTitle,
					"context":            q.Context,
					"quote_type":         q.QuoteType,
					"significance_score": q.SignificanceScore,
					"metadata":           q.Metadata,
					"created_at":         now,
				})
			}
			r.insert(ctx, report, log, TableDocumentQuotes, records)

		case *agent.ChartAnalysis:
			records := make([]map[string]any, 0, len(out.ChartElements))
			for _, el := range out.ChartElements {
				records = append(records, map[string]any{
					"deal_id":     dealID,
					"title":       el.Title,
					"chart_type":  el.ChartType,
					"description": el.Description,
					"data_points": el.DataPoints,
					"source_page": el.SourcePage,
					"metadata":    el.Metadata,
					"created_at":  now,
				})
			}
			r.insert(ctx, report, log, TableChartElements, records)
		}
	}
}

func (r *Runner) persistChunks(ctx context.Context, dealID string, chunks []document.Chunk) {
	now := time.Now().UTC().Format(time.RFC3339)
	records := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, map[string]any{
			"deal_id":         dealID,
			"chunk_text":      c.Text,
			"chunk_index":     c.Index,
			"char_length":     c.CharLen,
			"section_type":    string(c.SectionType),
			"section_title":   c.Title,
			"page_start":      c.PageStart,
			"page_end":        c.PageEnd,
			"metadata":        c.Metadata,
			"processed_by_ai": c.Processed,
			"created_at":      now,
		})
	}
	if _, err := r.records.InsertRecords(ctx, TableDocumentChunks, records); err != nil {
		r.log.Error("chunk persist failed", "deal_id", dealID, "error", err)
	}
}

func (r *Runner) insert(ctx context.Context, report *RunReport, log *slog.Logger, table string, records []map[string]any) {
	if len(records) == 0 {
		return
	}
	if _, err := r.records.InsertRecords(ctx, table, records); err != nil {
		log.Error("persist failed", "table", table, "error", err)
		report.Errors = append(report.Errors, "persist "+table+": "+err.Error())
	}
}

// QueryChunks returns stored chunks for a deal, optionally filtered by
// section type, processed flag, and a substring of the chunk text.
func (r *Runner) QueryChunks(ctx context.Context, dealID, sectionType, processed, search string) ([]map[string]any, error) {
	filters := []store.Filter{store.Eq("deal_id", dealID)}
	if sectionType != "" {
		filters = append(filters, store.Eq("section_type", sectionType))
	}
	if processed != "" {
		filters = append(filters, store.Eq("processed_by_ai", processed))
	}
	if search != "" {
		filters = append(filters, store.Contains("chunk_text", search))
	}
	return r.records.QueryRecords(ctx, TableDocumentChunks, filters...)
}
