package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/coveview/dealscan/internal/schema"
)

// FinancialMetric is one extracted deal metric. metric_value is the literal
// string as the document states it ("$10M", "15%", "2.5x") — units are
// preserved, percentages are never pre-divided.
type FinancialMetric struct {
	MetricName      string  `json:"metric_name"`
	MetricValue     string  `json:"metric_value"`
	MetricType      string  `json:"metric_type"`
	TimePeriod      string  `json:"time_period"`
	SourceSection   string  `json:"source_section"`
	ConfidenceScore float64 `json:"confidence_score"`
}

var metricSchema = &schema.Schema{Fields: []schema.Field{
	{Name: "metric_name", Kind: schema.String},
	{Name: "metric_value", Kind: schema.String},
	{Name: "metric_type", Kind: schema.String, Enum: []string{"revenue", "profitability", "growth", "multiple", "other"}, Fallback: "other"},
	{Name: "time_period", Kind: schema.String},
	{Name: "source_section", Kind: schema.String},
	{Name: "confidence_score", Kind: schema.Score},
}}

// FinancialAgent extracts key financial metrics from CIM text.
type FinancialAgent struct {
	model Completer
}

func NewFinancialAgent(model Completer) *FinancialAgent {
	return &FinancialAgent{model: model}
}

func (a *FinancialAgent) Name() string { return "financial" }

const financialBudget = 25000

func (a *FinancialAgent) Execute(ctx context.Context, text string, actx *Context) Result {
	return execute(ctx, a.model, a.Name(), a.buildPrompt(text), a.parse)
}

func (a *FinancialAgent) buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(`You are a financial analyst. Extract key financial metrics from the following CIM document.

Return a JSON array where every metric has EXACTLY these fields:

[
    {
        "metric_name": "string",      // Name of the metric (e.g., "Revenue", "EBITDA", "Gross Margin")
        "metric_value": "string",     // The literal value with units preserved (e.g., "$10M", "15%", "2.5x")
        "metric_type": "string",      // One of: "revenue", "profitability", "growth", "multiple", "other"
        "time_period": "string",      // The period this metric applies to (e.g., "2023", "LTM", "5Y CAGR")
        "source_section": "string",   // Where in the document this was found
        "confidence_score": 0.0       // Float between 0.0 and 1.0
    }
]

IMPORTANT:
- Each metric must have all fields
- metric_type must be one of: revenue, profitability, growth, multiple, other
- confidence_score must be between 0.0 and 1.0
- metric_value must preserve units (%, $, x, etc.) exactly as stated

CIM Document:
`)
	sb.WriteString(truncateText(text, financialBudget))
	sb.WriteString(`

Extract all relevant financial metrics: revenue, profitability, growth rates, valuation multiples, key ratios, market size, historical trends, and projections.

Return ONLY the JSON array with no additional text.`)
	return sb.String()
}

func (a *FinancialAgent) parse(raw string) (any, []string, error) {
	arr, err := FirstArray(raw)
	if err != nil {
		return nil, nil, err
	}

	metrics := make([]FinancialMetric, 0, len(arr))
	var notes []string
	for i, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("[%d]: not an object, dropped", i))
			continue
		}
		normalized, ns := metricSchema.Normalize(m)
		for _, n := range ns {
			notes = append(notes, fmt.Sprintf("[%d].%s", i, n))
		}
		var metric FinancialMetric
		if err := decode(normalized, &metric); err != nil {
			return nil, nil, err
		}
		metrics = append(metrics, metric)
	}
	return metrics, notes, nil
}
