package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeModel returns canned responses or errors, keyed by agent label.
type fakeModel struct {
	responses map[string]string
	errs      map[string]error
	prompts   map[string]string
}

func (f *fakeModel) Complete(ctx context.Context, prompt, label string) (string, error) {
	if f.prompts == nil {
		f.prompts = make(map[string]string)
	}
	f.prompts[label] = prompt
	if err := f.errs[label]; err != nil {
		return "", err
	}
	return f.responses[label], nil
}

func TestFinancialAgentMissingConfidenceDefaults(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"financial": `Here are the metrics:
[
    {
        "metric_name": "Revenue",
        "metric_value": "$10M",
        "metric_type": "revenue",
        "time_period": "2023",
        "source_section": "Financial Overview"
    }
]`,
	}}

	res := NewFinancialAgent(model).Execute(context.Background(), "Revenue: $10M (2023), EBITDA: $2M, Revenue CAGR: 15%", nil)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	metrics, ok := res.Output.([]FinancialMetric)
	if !ok {
		t.Fatalf("output type = %T", res.Output)
	}
	if len(metrics) != 1 {
		t.Fatalf("len(metrics) = %d, want 1", len(metrics))
	}
	m := metrics[0]
	if m.ConfidenceScore != 0.0 {
		t.Errorf("confidence_score = %v, want 0.0 default", m.ConfidenceScore)
	}
	if m.MetricName != "Revenue" || m.MetricValue != "$10M" || m.MetricType != "revenue" || m.TimePeriod != "2023" {
		t.Errorf("metric fields not preserved: %+v", m)
	}
	if len(res.Notes) == 0 {
		t.Error("expected a normalization note for the defaulted field")
	}
}

func TestFinancialAgentBadMetricType(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"financial": `[{"metric_name": "Churn", "metric_value": "5%", "metric_type": "retention", "time_period": "2023", "source_section": "KPIs", "confidence_score": 0.9}]`,
	}}
	res := NewFinancialAgent(model).Execute(context.Background(), "doc", nil)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	metrics := res.Output.([]FinancialMetric)
	if metrics[0].MetricType != "other" {
		t.Errorf("metric_type = %q, want fallback other", metrics[0].MetricType)
	}
}

func TestRiskAgentParsesScores(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"risk": `{
    "risk_summary": "Moderate overall risk.",
    "risk_categories": {
        "market_risks": ["competitive pressure"],
        "financial_risks": ["customer concentration"],
        "operational_risks": [],
        "regulatory_risks": [],
        "other_risks": []
    },
    "risk_scores": {"market_risk": 0.6, "financial_risk": 1.4, "operational_risk": 0.3, "regulatory_risk": 0.2, "overall_risk": 0.5},
    "mitigation_strategies": ["diversify customer base"],
    "confidence_score": 0.8
}`,
	}}
	res := NewRiskAgent(model).Execute(context.Background(), "doc", nil)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	analysis := res.Output.(*RiskAnalysis)
	if analysis.RiskScores.FinancialRisk != 1.0 {
		t.Errorf("financial_risk = %v, want clamped 1.0", analysis.RiskScores.FinancialRisk)
	}
	if len(analysis.RiskCategories.MarketRisks) != 1 {
		t.Errorf("market_risks = %v", analysis.RiskCategories.MarketRisks)
	}
}

func TestConsistencyAgentSeverityFallback(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"consistency": `{
    "consistency_summary": "One conflict found.",
    "inconsistencies": [
        {"type": "financial", "description": "Revenue differs between sections", "location": "p.3 vs p.12", "severity": "catastrophic", "impact": "high", "resolution": "verify with management"}
    ],
    "consistency_scores": {"financial_consistency": 0.5, "narrative_consistency": 0.9, "metric_consistency": 0.6, "timeline_consistency": 1.0, "overall_consistency": 0.7},
    "recommendations": ["request audited statements"],
    "confidence_score": 0.75
}`,
	}}
	res := NewConsistencyAgent(model).Execute(context.Background(), "doc", nil)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	analysis := res.Output.(*ConsistencyAnalysis)
	if len(analysis.Inconsistencies) != 1 {
		t.Fatalf("inconsistencies = %d, want 1", len(analysis.Inconsistencies))
	}
	if got := analysis.Inconsistencies[0].Severity; got != "medium" {
		t.Errorf("severity = %q, want fallback medium", got)
	}
}

func TestConsistencyAgentEmbedsContext(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"consistency": `{"consistency_summary": "ok", "inconsistencies": [], "consistency_scores": {}, "recommendations": [], "confidence_score": 0.5}`,
	}}
	actx := &Context{
		FinancialMetrics: []FinancialMetric{{MetricName: "Revenue", MetricValue: "$10M", MetricType: "revenue"}},
		Risks: &RiskAnalysis{RiskCategories: RiskCategories{
			MarketRisks: []string{"single-product dependency"},
		}},
	}
	res := NewConsistencyAgent(model).Execute(context.Background(), "doc", actx)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	prompt := model.prompts["consistency"]
	if !strings.Contains(prompt, "$10M") {
		t.Error("prompt does not embed upstream financial metrics")
	}
	if !strings.Contains(prompt, "single-product dependency") {
		t.Error("prompt does not embed upstream risks")
	}
}

func TestMemoAgentGradeNormalization(t *testing.T) {
	section := `{"summary": "s", "details": [], "strength": "strong"}`
	base := `{
    "investment_grade": %GRADE%,
    "executive_summary": "Summary.",
    "business_model": ` + section + `,
    "financial_metrics": ` + section + `,
    "key_risks": ` + section + `,
    "competitive_position": ` + section + `,
    "recommendation": ` + section + `,
    "investment_highlights": ["growth"],
    "management_questions": ["churn?"],
    "confidence_score": 0.9
}`

	cases := []struct {
		grade, want string
	}{
		{`"A+"`, "A+"},
		{`"b"`, "B"},
		{`"Z-"`, "B"}, // outside the enum falls back
	}
	for _, c := range cases {
		model := &fakeModel{responses: map[string]string{
			"memo": strings.Replace(base, "%GRADE%", c.grade, 1),
		}}
		res := NewMemoAgent(model).Execute(context.Background(), "doc", nil)
		if res.Status != StatusSuccess {
			t.Fatalf("grade %s: status = %s, err = %s", c.grade, res.Status, res.Err)
		}
		memo := res.Output.(*InvestmentMemo)
		if memo.InvestmentGrade != c.want {
			t.Errorf("grade %s: investment_grade = %q, want %q", c.grade, memo.InvestmentGrade, c.want)
		}
	}
}

func TestQuoteAgentRelationshipFallback(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"quote": `{
    "quotes": [{"quote_text": "We doubled revenue.", "speaker": "CEO", "speaker_title": "Chief Executive", "context": "earnings call", "quote_type": "executive", "significance_score": 0.9, "metadata": {}}],
    "quote_relationships": [{"quote_text": "We doubled revenue.", "related_element": "Revenue $10M", "relationship_type": "proves", "confidence_score": 0.8}],
    "confidence_score": 0.85
}`,
	}}
	res := NewQuoteAgent(model).Execute(context.Background(), "doc", nil)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	analysis := res.Output.(*QuoteAnalysis)
	if got := analysis.QuoteRelationships[0].RelationshipType; got != "contextualizes" {
		t.Errorf("relationship_type = %q, want fallback contextualizes", got)
	}
	if analysis.Quotes[0].QuoteType != "executive" {
		t.Errorf("quote_type = %q", analysis.Quotes[0].QuoteType)
	}
}

func TestChartAgentSourcePageTruncation(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"chart": `{
    "chart_elements": [{"title": "Revenue by Year", "chart_type": "histogram", "description": "annual revenue", "data_points": {"2023": "$10M"}, "source_page": 4.7, "metadata": {}}],
    "chart_relationships": [],
    "confidence_score": 0.7
}`,
	}}
	res := NewChartAgent(model).Execute(context.Background(), "doc", nil)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	analysis := res.Output.(*ChartAnalysis)
	el := analysis.ChartElements[0]
	if el.SourcePage != 4 {
		t.Errorf("source_page = %d, want 4", el.SourcePage)
	}
	if el.ChartType != "other" {
		t.Errorf("chart_type = %q, want fallback other", el.ChartType)
	}
}

func TestExecuteModelFailureContained(t *testing.T) {
	model := &fakeModel{errs: map[string]error{
		"risk": errors.New("model timeout after 120s"),
	}}
	res := NewRiskAgent(model).Execute(context.Background(), "doc", nil)
	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if res.Output != nil {
		t.Error("output should be nil on failure")
	}
	if !strings.Contains(res.Err, "model timeout") {
		t.Errorf("error = %q, want model timeout detail", res.Err)
	}
	if len(res.Log) == 0 {
		t.Error("expected trace lines on failure")
	}
}

func TestExecuteMalformedResponseContained(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"financial": "I'm sorry, I cannot extract metrics from this document.",
	}}
	res := NewFinancialAgent(model).Execute(context.Background(), "doc", nil)
	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if !strings.Contains(res.Err, "no structured block") {
		t.Errorf("error = %q", res.Err)
	}
}

func TestExecutePanicRecovered(t *testing.T) {
	model := &fakeModel{responses: map[string]string{"boom": "{}"}}
	res := execute(context.Background(), model, "boom", "prompt", func(raw string) (any, []string, error) {
		panic("schema misconfigured")
	})
	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if !strings.Contains(res.Err, "schema misconfigured") {
		t.Errorf("error = %q", res.Err)
	}
}

func TestTruncateText(t *testing.T) {
	long := strings.Repeat("a", 100)
	if got := truncateText(long, 10); len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
	if got := truncateText("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
}
