// Package persona loads the persona panel that drives a War Room
// pipeline. Personas come from a directory of YAML files, falling back
// to the built-in default panel, and are snapshotted at pipeline start.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warroomlabs/warroom/pkg/models"
)

// LoadDir reads every .yaml/.yml file in dir as one persona definition.
// Files are loaded in name order so the panel is deterministic.
func LoadDir(dir string) ([]*models.Persona, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read personas dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var personas []*models.Persona
	for _, name := range names {
		path := filepath.Join(dir, name)
		p, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load persona %s: %w", name, err)
		}
		personas = append(personas, p)
	}

	if len(personas) == 0 {
		return nil, fmt.Errorf("no persona files found in %s", dir)
	}
	return personas, nil
}

func loadFile(path string) (*models.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p models.Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if p.ID == "" {
		// Default the id to the file name.
		base := filepath.Base(path)
		p.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load returns the persona panel for a run: the contents of dir when
// set, the built-in defaults otherwise. The returned slice is a fresh
// snapshot each call; mutations to a running pipeline's copy never leak
// back into the source definitions.
func Load(dir string) ([]*models.Persona, error) {
	if dir != "" {
		return LoadDir(dir)
	}
	return Defaults(), nil
}

// Defaults returns the built-in war-room panel.
// Each call returns fresh copies so callers can treat them as frozen.
func Defaults() []*models.Persona {
	src := []*models.Persona{
		{
			ID:      "architect",
			Name:    "The Architect",
			Role:    "Systems design and long-term structure",
			Icon:    "🏛️",
			Mindset: "Thinks in components, contracts, and failure domains. Prefers boring technology and designs for the change that is actually likely.",
			Knowledge: "Distributed systems, API design, data modeling, " +
				"operational concerns like migrations and rollout.",
			EvaluationCriteria: "Is the structure sound? Are boundaries and contracts explicit? Will this design survive the next requirement?",
		},
		{
			ID:      "skeptic",
			Name:    "The Skeptic",
			Role:    "Risk, security, and failure modes",
			Icon:    "🔍",
			Mindset: "Assumes every input is hostile and every dependency will fail at the worst moment. Looks for the case nobody mentioned.",
			Knowledge: "Security review, input validation, concurrency hazards, " +
				"error handling, abuse scenarios.",
			EvaluationCriteria: "What breaks under malformed input, partial failure, or concurrent access? Are errors handled or swallowed?",
		},
		{
			ID:      "pragmatist",
			Name:    "The Pragmatist",
			Role:    "Scope, simplicity, and shipping",
			Icon:    "🔧",
			Mindset: "Wants the smallest solution that genuinely solves the problem. Allergic to speculative generality.",
			Knowledge: "Incremental delivery, refactoring, cost/benefit " +
				"judgment, maintenance burden of clever code.",
			EvaluationCriteria: "Is this the simplest workable approach? What could be cut without losing the goal? Is the effort proportional?",
		},
		{
			ID:      "advocate",
			Name:    "The User Advocate",
			Role:    "Experience of whoever consumes the result",
			Icon:    "🤝",
			Mindset: "Reads everything as the person who has to use it, debug it, or call it at 3am. Clarity beats cleverness.",
			Knowledge: "API ergonomics, documentation, error messages, " +
				"onboarding friction, accessibility of interfaces.",
			EvaluationCriteria: "Is the result understandable and usable without tribal knowledge? Are failure messages actionable?",
		},
	}

	out := make([]*models.Persona, len(src))
	for i, p := range src {
		copied := *p
		out[i] = &copied
	}
	return out
}
