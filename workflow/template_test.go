package workflow

import (
	"strings"
	"testing"
)

func TestTemplateStore(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		s := NewTemplateStore()
		id := s.Register(Template{ID: "t1", Name: "One"})
		if id != "t1" {
			t.Errorf("Register returned %q, want t1", id)
		}
		tpl, err := s.Get("t1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if tpl.Name != "One" {
			t.Errorf("got template %q", tpl.Name)
		}
	})

	t.Run("missing id is generated", func(t *testing.T) {
		s := NewTemplateStore()
		id := s.Register(Template{Name: "anon"})
		if id == "" {
			t.Fatal("Register did not generate an id")
		}
		if _, err := s.Get(id); err != nil {
			t.Errorf("generated id not registered: %v", err)
		}
	})

	t.Run("register overwrites", func(t *testing.T) {
		s := NewTemplateStore()
		s.Register(Template{ID: "t1", Name: "old"})
		s.Register(Template{ID: "t1", Name: "new"})
		tpl, _ := s.Get("t1")
		if tpl.Name != "new" {
			t.Errorf("overwrite lost: %q", tpl.Name)
		}
		if got := len(s.List()); got != 1 {
			t.Errorf("List = %d templates, want 1", got)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		s := NewTemplateStore()
		if _, err := s.Get("nope"); !IsNotFound(err) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}

func TestLoadTemplates(t *testing.T) {
	const bundle = `
templates:
  - template_id: rfi_review
    name: RFI Review
    description: Standard RFI handling
    tasks:
      - name: analyze
        type: rfi_analysis
        data:
          category: electrical
      - name: respond
        type: manual
        assignee: project_lead
        approvers: [plan_checker, architect]
        dependencies: [analyze]
    participants:
      - id: p1
        name: Alex
        role: architect
  - template_id: cost_check
    name: Cost Check
    tasks:
      - name: estimate
        type: cost_estimate
`

	t.Run("parses a bundle", func(t *testing.T) {
		s := NewTemplateStore()
		if err := s.LoadTemplates(strings.NewReader(bundle)); err != nil {
			t.Fatalf("LoadTemplates failed: %v", err)
		}
		if got := len(s.List()); got != 2 {
			t.Fatalf("expected 2 templates, got %d", got)
		}

		tpl, err := s.Get("rfi_review")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(tpl.Tasks) != 2 {
			t.Fatalf("expected 2 tasks, got %d", len(tpl.Tasks))
		}
		respond := tpl.Tasks[1]
		if respond.Type != TaskTypeManual || respond.Assignee != "project_lead" {
			t.Errorf("task fields wrong: %+v", respond)
		}
		if len(respond.Approvers) != 2 {
			t.Errorf("approvers = %v", respond.Approvers)
		}
		if len(respond.Dependencies) != 1 || respond.Dependencies[0] != "analyze" {
			t.Errorf("dependencies = %v", respond.Dependencies)
		}
		if tpl.Tasks[0].Data["category"] != "electrical" {
			t.Errorf("task data = %v", tpl.Tasks[0].Data)
		}
		if len(tpl.Participants) != 1 || tpl.Participants[0].Role != "architect" {
			t.Errorf("participants = %v", tpl.Participants)
		}
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		s := NewTemplateStore()
		if err := s.LoadTemplates(strings.NewReader("templates: [")); err == nil {
			t.Error("expected parse error")
		}
	})
}
