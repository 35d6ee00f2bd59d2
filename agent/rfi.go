package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
)

// RFIAnalyst classifies requests for information and drafts answers.
type RFIAnalyst struct {
	model model.ChatModel
}

// NewRFIAnalyst creates an RFI analyst backed by the given chat model.
func NewRFIAnalyst(m model.ChatModel) *RFIAnalyst {
	return &RFIAnalyst{model: m}
}

// RFIRequest describes one request for information to analyze.
type RFIRequest struct {
	Subject   string            `json:"subject"`
	Question  string            `json:"question"`
	Category  string            `json:"category"`
	Documents []DocumentExcerpt `json:"documents,omitempty"`
}

// RFIAnalysis is the analyst's structured result.
type RFIAnalysis struct {
	Classification string   `json:"classification"`
	DraftAnswer    string   `json:"draft_answer"`
	OpenPoints     []string `json:"open_points,omitempty"`
	FullAnalysis   string   `json:"full_analysis"`
	TokensUsed     int      `json:"tokens_used"`
}

var rfiHeadings = []string{"classification", "draft answer", "open points"}

// Analyze runs the RFI through the model and scrapes the reply.
func (a *RFIAnalyst) Analyze(ctx context.Context, req RFIRequest) (RFIAnalysis, error) {
	var sb strings.Builder
	sb.WriteString("Analyze the following request for information (RFI):\n\n")
	sb.WriteString("SUBJECT: ")
	sb.WriteString(req.Subject)
	sb.WriteString("\nCATEGORY: ")
	sb.WriteString(req.Category)
	sb.WriteString("\n\nQUESTION:\n")
	sb.WriteString(req.Question)
	sb.WriteString("\n\nRELEVANT DOCUMENTS:\n")
	sb.WriteString(documentContext(req.Documents))
	sb.WriteString("\n\nProvide the following sections:\n")
	sb.WriteString("1. Classification (discipline and urgency of the request)\n")
	sb.WriteString("2. Draft answer (a complete answer the project lead can send)\n")
	sb.WriteString("3. Open points (information still missing, one per line)\n")

	out, err := a.model.Chat(ctx, []model.Message{
		systemMessage("construction RFI analyst"),
		{Role: model.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return RFIAnalysis{}, fmt.Errorf("rfi analysis: %w", err)
	}

	sections := SplitSections(out.Text, rfiHeadings)
	return RFIAnalysis{
		Classification: sections["classification"],
		DraftAnswer:    sections["draft answer"],
		OpenPoints:     bulletLines(sections["open points"]),
		FullAnalysis:   out.Text,
		TokensUsed:     out.TokensUsed,
	}, nil
}
