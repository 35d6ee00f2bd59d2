package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
)

// CostEstimator estimates the cost impact of RFIs and change requests.
type CostEstimator struct {
	model model.ChatModel
}

// NewCostEstimator creates a cost estimator backed by the given chat
// model.
func NewCostEstimator(m model.ChatModel) *CostEstimator {
	return &CostEstimator{model: m}
}

// CostRequest describes a change whose cost impact should be estimated.
type CostRequest struct {
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Complexity  string            `json:"complexity"`
	Documents   []DocumentExcerpt `json:"documents,omitempty"`
}

// CostEstimate is the estimator's structured result.
type CostEstimate struct {
	EstimatedCost   float64  `json:"estimated_cost"`
	Currency        string   `json:"currency"`
	RiskLevel       string   `json:"risk_level"`
	RiskExplanation string   `json:"risk_explanation"`
	Savings         []string `json:"savings,omitempty"`
	ScheduleImpact  string   `json:"schedule_impact"`
	FullAnalysis    string   `json:"full_analysis"`
	TokensUsed      int      `json:"tokens_used"`
}

var costHeadings = []string{
	"estimated cost",
	"cost breakdown",
	"risk assessment",
	"potential savings",
	"schedule impact",
}

// Estimate runs the request through the model and scrapes the reply.
func (a *CostEstimator) Estimate(ctx context.Context, req CostRequest) (CostEstimate, error) {
	complexity := req.Complexity
	if complexity == "" {
		complexity = "medium"
	}

	var sb strings.Builder
	sb.WriteString("Estimate the cost impact of the following change request:\n\n")
	sb.WriteString("DESCRIPTION:\n")
	sb.WriteString(req.Description)
	sb.WriteString("\n\nCATEGORY: ")
	sb.WriteString(req.Category)
	sb.WriteString("\nCOMPLEXITY: ")
	sb.WriteString(complexity)
	sb.WriteString("\n\nRELEVANT DOCUMENTS:\n")
	sb.WriteString(documentContext(req.Documents))
	sb.WriteString("\n\nProvide the following sections:\n")
	sb.WriteString("1. Estimated cost (a single figure in EUR)\n")
	sb.WriteString("2. Cost breakdown (material, labor, equipment, other)\n")
	sb.WriteString("3. Risk assessment (low, medium or high, with reasoning)\n")
	sb.WriteString("4. Potential savings (one per line)\n")
	sb.WriteString("5. Schedule impact on the project\n")

	out, err := a.model.Chat(ctx, []model.Message{
		systemMessage("construction cost estimator"),
		{Role: model.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return CostEstimate{}, fmt.Errorf("cost estimate: %w", err)
	}

	sections := SplitSections(out.Text, costHeadings)
	risk := sections["risk assessment"]
	return CostEstimate{
		EstimatedCost:   firstNumber(sections["estimated cost"]),
		Currency:        "EUR",
		RiskLevel:       riskLevel(risk),
		RiskExplanation: risk,
		Savings:         bulletLines(sections["potential savings"]),
		ScheduleImpact:  sections["schedule impact"],
		FullAnalysis:    out.Text,
		TokensUsed:      out.TokensUsed,
	}, nil
}
