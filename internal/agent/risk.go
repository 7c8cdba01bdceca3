package agent

import (
	"context"
	"strings"

	"github.com/coveview/dealscan/internal/schema"
)

// RiskCategories groups identified risks by category.
type RiskCategories struct {
	MarketRisks      []string `json:"market_risks"`
	FinancialRisks   []string `json:"financial_risks"`
	OperationalRisks []string `json:"operational_risks"`
	RegulatoryRisks  []string `json:"regulatory_risks"`
	OtherRisks       []string `json:"other_risks"`
}

// RiskScores holds one score per category plus an overall score, all in
// [0.0, 1.0].
type RiskScores struct {
	MarketRisk      float64 `json:"market_risk"`
	FinancialRisk   float64 `json:"financial_risk"`
	OperationalRisk float64 `json:"operational_risk"`
	RegulatoryRisk  float64 `json:"regulatory_risk"`
	OverallRisk     float64 `json:"overall_risk"`
}

// RiskAnalysis is the risk agent's validated output.
type RiskAnalysis struct {
	RiskSummary          string         `json:"risk_summary"`
	RiskCategories       RiskCategories `json:"risk_categories"`
	RiskScores           RiskScores     `json:"risk_scores"`
	MitigationStrategies []string       `json:"mitigation_strategies"`
	ConfidenceScore      float64        `json:"confidence_score"`
}

var riskSchema = &schema.Schema{Fields: []schema.Field{
	{Name: "risk_summary", Kind: schema.String},
	{Name: "risk_categories", Kind: schema.Object, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "market_risks", Kind: schema.Array, Strings: true},
		{Name: "financial_risks", Kind: schema.Array, Strings: true},
		{Name: "operational_risks", Kind: schema.Array, Strings: true},
		{Name: "regulatory_risks", Kind: schema.Array, Strings: true},
		{Name: "other_risks", Kind: schema.Array, Strings: true},
	}}},
	{Name: "risk_scores", Kind: schema.Object, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "market_risk", Kind: schema.Score},
		{Name: "financial_risk", Kind: schema.Score},
		{Name: "operational_risk", Kind: schema.Score},
		{Name: "regulatory_risk", Kind: schema.Score},
		{Name: "overall_risk", Kind: schema.Score},
	}}},
	{Name: "mitigation_strategies", Kind: schema.Array, Strings: true},
	{Name: "confidence_score", Kind: schema.Score},
}}

// RiskAgent identifies business and investment risks in CIM text.
type RiskAgent struct {
	model Completer
}

func NewRiskAgent(model Completer) *RiskAgent {
	return &RiskAgent{model: model}
}

func (a *RiskAgent) Name() string { return "risk" }

const riskBudget = 25000

func (a *RiskAgent) Execute(ctx context.Context, text string, actx *Context) Result {
	return execute(ctx, a.model, a.Name(), a.buildPrompt(text), a.parse)
}

func (a *RiskAgent) buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(`You are a risk analyst. Analyze the following CIM document for potential risks and issues.

Return a JSON object with EXACTLY this structure:

{
    "risk_summary": "string",           // Overall risk assessment
    "risk_categories": {
        "market_risks": [],             // Array of market-related risks
        "financial_risks": [],          // Array of financial risks
        "operational_risks": [],        // Array of operational risks
        "regulatory_risks": [],         // Array of regulatory risks
        "other_risks": []               // Array of other identified risks
    },
    "risk_scores": {
        "market_risk": 0.0,             // 0.0 to 1.0
        "financial_risk": 0.0,          // 0.0 to 1.0
        "operational_risk": 0.0,        // 0.0 to 1.0
        "regulatory_risk": 0.0,         // 0.0 to 1.0
        "overall_risk": 0.0             // 0.0 to 1.0
    },
    "mitigation_strategies": [],        // Array of suggested mitigation strategies
    "confidence_score": 0.0             // 0.0 to 1.0
}

IMPORTANT:
- All fields must be present
- Risk scores must be between 0.0 and 1.0
- Each risk category must be an array of strings

CIM Document:
`)
	sb.WriteString(truncateText(text, riskBudget))
	sb.WriteString(`

Focus on market risks (competition, demand, pricing), financial risks (liquidity, leverage, growth), operational risks (execution, scalability, technology), regulatory risks (compliance, legal, policy), other significant risks, and mitigation strategies.

Return ONLY the JSON object with no additional text.`)
	return sb.String()
}

func (a *RiskAgent) parse(raw string) (any, []string, error) {
	m, err := FirstObject(raw)
	if err != nil {
		return nil, nil, err
	}
	normalized, notes := riskSchema.Normalize(m)

	var analysis RiskAnalysis
	if err := decode(normalized, &analysis); err != nil {
		return nil, nil, err
	}
	return &analysis, notes, nil
}
