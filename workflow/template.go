package workflow

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// TemplateStore holds immutable workflow blueprints for the life of the
// process. Registration is an idempotent upsert; no structural validation
// is performed, matching the permissive behavior of the CRUD layer that
// feeds it. Safe for concurrent use.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateStore creates an empty template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: make(map[string]Template)}
}

// Register stores a template under its id, silently overwriting any
// existing registration with the same id. A template without an id gets a
// generated one. Returns the id the template is registered under.
func (s *TemplateStore) Register(t Template) string {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return t.ID
}

// Get returns the template registered under id, or a NotFoundError.
func (s *TemplateStore) Get(id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return Template{}, &NotFoundError{Kind: "template", ID: id}
	}
	return t, nil
}

// List returns all registered templates in unspecified order.
func (s *TemplateStore) List() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out
}

// templateFile is the on-disk shape of a template bundle.
type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates reads a YAML template bundle and registers every template
// it contains. The expected shape is:
//
//	templates:
//	  - template_id: rfi_review
//	    name: RFI Review
//	    tasks:
//	      - name: analyze
//	        type: rfi_analysis
//	      - name: respond
//	        type: manual
//	        approvers: [plan_checker]
//	        dependencies: [analyze]
func (s *TemplateStore) LoadTemplates(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	for _, t := range f.Templates {
		s.Register(t)
	}
	return nil
}

// LoadTemplateFile registers every template in the YAML file at path.
func (s *TemplateStore) LoadTemplateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open templates: %w", err)
	}
	defer f.Close()
	return s.LoadTemplates(f)
}
