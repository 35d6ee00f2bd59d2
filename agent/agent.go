// Package agent implements the construction-domain assistant agents.
//
// Each agent wraps a chat model with a task-specific prompt and scrapes
// the reply into a structured result via section splitting. Agents are
// wired into workflows as task handlers; see Handlers.
package agent

import (
	"strings"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
)

// DocumentExcerpt is a fragment of a project document given to an agent
// as context.
type DocumentExcerpt struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

func documentContext(docs []DocumentExcerpt) string {
	if len(docs) == 0 {
		return "No documents available."
	}
	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Document: ")
		sb.WriteString(doc.Title)
		sb.WriteString("\nExcerpt: ")
		sb.WriteString(doc.Excerpt)
	}
	return sb.String()
}

func systemMessage(role string) model.Message {
	return model.Message{
		Role:    model.RoleSystem,
		Content: "You are a " + role + " working on building construction projects. Answer in structured text with clearly numbered sections, no markdown tables.",
	}
}
