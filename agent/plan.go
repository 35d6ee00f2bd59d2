package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
)

// PlanReviewer checks construction plans for conflicts and compliance
// issues across disciplines.
type PlanReviewer struct {
	model model.ChatModel
}

// NewPlanReviewer creates a plan reviewer backed by the given chat model.
func NewPlanReviewer(m model.ChatModel) *PlanReviewer {
	return &PlanReviewer{model: m}
}

// PlanReviewRequest describes one plan to review.
type PlanReviewRequest struct {
	PlanName    string            `json:"plan_name"`
	Discipline  string            `json:"discipline"`
	Description string            `json:"description"`
	Documents   []DocumentExcerpt `json:"documents,omitempty"`
}

// PlanReview is the reviewer's structured result.
type PlanReview struct {
	Findings        []string `json:"findings,omitempty"`
	Conflicts       []string `json:"conflicts,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	RiskLevel       string   `json:"risk_level"`
	FullAnalysis    string   `json:"full_analysis"`
	TokensUsed      int      `json:"tokens_used"`
}

var planHeadings = []string{"findings", "conflicts", "recommendations", "overall risk"}

// Review runs the plan through the model and scrapes the reply.
func (a *PlanReviewer) Review(ctx context.Context, req PlanReviewRequest) (PlanReview, error) {
	var sb strings.Builder
	sb.WriteString("Review the following construction plan:\n\n")
	sb.WriteString("PLAN: ")
	sb.WriteString(req.PlanName)
	sb.WriteString("\nDISCIPLINE: ")
	sb.WriteString(req.Discipline)
	sb.WriteString("\n\nDESCRIPTION:\n")
	sb.WriteString(req.Description)
	sb.WriteString("\n\nRELEVANT DOCUMENTS:\n")
	sb.WriteString(documentContext(req.Documents))
	sb.WriteString("\n\nProvide the following sections:\n")
	sb.WriteString("1. Findings (issues in the plan itself, one per line)\n")
	sb.WriteString("2. Conflicts (clashes with other disciplines, one per line)\n")
	sb.WriteString("3. Recommendations (concrete next steps, one per line)\n")
	sb.WriteString("4. Overall risk (low, medium or high)\n")

	out, err := a.model.Chat(ctx, []model.Message{
		systemMessage("construction plan reviewer"),
		{Role: model.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return PlanReview{}, fmt.Errorf("plan review: %w", err)
	}

	sections := SplitSections(out.Text, planHeadings)
	return PlanReview{
		Findings:        bulletLines(sections["findings"]),
		Conflicts:       bulletLines(sections["conflicts"]),
		Recommendations: bulletLines(sections["recommendations"]),
		RiskLevel:       riskLevel(sections["overall risk"]),
		FullAnalysis:    out.Text,
		TokensUsed:      out.TokensUsed,
	}, nil
}
