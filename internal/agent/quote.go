package agent

import (
	"context"
	"strings"

	"github.com/coveview/dealscan/internal/schema"
)

// Quote is one notable quotation extracted from the document.
type Quote struct {
	QuoteText         string         `json:"quote_text"`
	Speaker           string         `json:"speaker"`
	SpeakerTitle      string         `json:"speaker_title"`
	Context           string         `json:"context"`
	QuoteType         string         `json:"quote_type"`
	SignificanceScore float64        `json:"significance_score"`
	Metadata          map[string]any `json:"metadata"`
}

// QuoteRelationship links a quote to a related metric or text span.
type QuoteRelationship struct {
	QuoteText        string  `json:"quote_text"`
	RelatedElement   string  `json:"related_element"`
	RelationshipType string  `json:"relationship_type"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// QuoteAnalysis is the quote agent's validated output.
type QuoteAnalysis struct {
	Quotes             []Quote             `json:"quotes"`
	QuoteRelationships []QuoteRelationship `json:"quote_relationships"`
	ConfidenceScore    float64             `json:"confidence_score"`
}

var quoteSchema = &schema.Schema{Fields: []schema.Field{
	{Name: "quotes", Kind: schema.Array, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "quote_text", Kind: schema.String},
		{Name: "speaker", Kind: schema.String},
		{Name: "speaker_title", Kind: schema.String},
		{Name: "context", Kind: schema.String},
		{Name: "quote_type", Kind: schema.String, Enum: []string{"testimonial", "executive", "customer", "expert", "other"}, Fallback: "other"},
		{Name: "significance_score", Kind: schema.Score},
		{Name: "metadata", Kind: schema.Object},
	}}},
	{Name: "quote_relationships", Kind: schema.Array, Elem: &schema.Schema{Fields: []schema.Field{
		{Name: "quote_text", Kind: schema.String},
		{Name: "related_element", Kind: schema.String},
		{Name: "relationship_type", Kind: schema.String, Enum: []string{"supports", "contradicts", "contextualizes"}, Fallback: "contextualizes"},
		{Name: "confidence_score", Kind: schema.Score},
	}}},
	{Name: "confidence_score", Kind: schema.Score},
}}

// QuoteAgent extracts notable quotations and their relationships to other
// document elements. It has no upstream dependencies.
type QuoteAgent struct {
	model Completer
}

func NewQuoteAgent(model Completer) *QuoteAgent {
	return &QuoteAgent{model: model}
}

func (a *QuoteAgent) Name() string { return "quote" }

const quoteBudget = 15000

func (a *QuoteAgent) Execute(ctx context.Context, text string, actx *Context) Result {
	return execute(ctx, a.model, a.Name(), a.buildPrompt(text), a.parse)
}

func (a *QuoteAgent) buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(`You are a document analyst. Extract notable quotes and statements from the following CIM document.

Return a JSON object with EXACTLY this structure:

{
    "quotes": [
        {
            "quote_text": "string",         // The exact quote
            "speaker": "string",            // Who said it (or "unattributed")
            "speaker_title": "string",      // Speaker's role or title
            "context": "string",            // Surrounding context
            "quote_type": "string",         // One of: "testimonial", "executive", "customer", "expert", "other"
            "significance_score": 0.0,      // 0.0 to 1.0
            "metadata": {}                  // Free-form metadata
        }
    ],
    "quote_relationships": [
        {
            "quote_text": "string",         // The quote being related
            "related_element": "string",    // The metric or text span it relates to
            "relationship_type": "string",  // One of: "supports", "contradicts", "contextualizes"
            "confidence_score": 0.0         // 0.0 to 1.0
        }
    ],
    "confidence_score": 0.0                 // 0.0 to 1.0
}

IMPORTANT:
- All fields must be present
- quote_type must be one of: testimonial, executive, customer, expert, other
- relationship_type must be one of: supports, contradicts, contextualizes
- All scores must be between 0.0 and 1.0

CIM Document:
`)
	sb.WriteString(truncateText(text, quoteBudget))
	sb.WriteString(`

Focus on direct quotations, management statements, customer testimonials, and expert opinions. Link quotes to the financial claims or narrative sections they support or contradict.

Return ONLY the JSON object with no additional text.`)
	return sb.String()
}

func (a *QuoteAgent) parse(raw string) (any, []string, error) {
	m, err := FirstObject(raw)
	if err != nil {
		return nil, nil, err
	}
	normalized, notes := quoteSchema.Normalize(m)

	var analysis QuoteAnalysis
	if err := decode(normalized, &analysis); err != nil {
		return nil, nil, err
	}
	return &analysis, notes, nil
}
