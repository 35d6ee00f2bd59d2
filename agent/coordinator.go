package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
)

// Coordinator merges the results of the specialist agents into one
// coherent response for the project team.
type Coordinator struct {
	model model.ChatModel
}

// NewCoordinator creates a coordinator backed by the given chat model.
func NewCoordinator(m model.ChatModel) *Coordinator {
	return &Coordinator{model: m}
}

// CoordinationResult is the coordinator's merged output.
type CoordinationResult struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations,omitempty"`
	NextSteps       []string `json:"next_steps,omitempty"`
	FullAnalysis    string   `json:"full_analysis"`
	TokensUsed      int      `json:"tokens_used"`
}

var coordinationHeadings = []string{"summary", "recommendations", "next steps"}

// Coordinate integrates the per-agent results for one request. Results
// are keyed by agent name; values are the agents' structured outputs and
// are rendered as JSON in the prompt.
func (a *Coordinator) Coordinate(ctx context.Context, subject string, results map[string]any) (CoordinationResult, error) {
	// Deterministic prompt order regardless of map iteration.
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Integrate the following specialist results for \"")
	sb.WriteString(subject)
	sb.WriteString("\" into one coherent assessment:\n")
	for _, name := range names {
		raw, err := json.MarshalIndent(results[name], "", "  ")
		if err != nil {
			raw = []byte(fmt.Sprintf("%v", results[name]))
		}
		sb.WriteString("\n=== ")
		sb.WriteString(name)
		sb.WriteString(" ===\n")
		sb.Write(raw)
		sb.WriteString("\n")
	}
	sb.WriteString("\nProvide the following sections:\n")
	sb.WriteString("1. Summary (the integrated assessment in a few sentences)\n")
	sb.WriteString("2. Recommendations (one per line)\n")
	sb.WriteString("3. Next steps (ordered, one per line)\n")

	out, err := a.model.Chat(ctx, []model.Message{
		systemMessage("coordination agent"),
		{Role: model.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return CoordinationResult{}, fmt.Errorf("coordination: %w", err)
	}

	sections := SplitSections(out.Text, coordinationHeadings)
	return CoordinationResult{
		Summary:         sections["summary"],
		Recommendations: bulletLines(sections["recommendations"]),
		NextSteps:       bulletLines(sections["next steps"]),
		FullAnalysis:    out.Text,
		TokensUsed:      out.TokensUsed,
	}, nil
}
