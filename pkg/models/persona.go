package models

// Persona is a named role definition driving how an agent run is
// prompted. The persona set is snapshotted at pipeline start and
// treated as frozen for the duration of one execution.
type Persona struct {
	// ID is the unique identifier for this persona.
	ID string `json:"id" yaml:"id"`
	// Name is the display name (e.g. "The Architect").
	Name string `json:"name" yaml:"name"`
	// Role is a one-line summary of the persona's function.
	Role string `json:"role" yaml:"role"`
	// Icon is a short display glyph for the UI.
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
	// Mindset describes how the persona approaches problems.
	Mindset string `json:"mindset" yaml:"mindset"`
	// Knowledge lists the persona's areas of expertise.
	Knowledge string `json:"knowledge" yaml:"knowledge"`
	// EvaluationCriteria defines what the persona checks during review.
	EvaluationCriteria string `json:"evaluation_criteria" yaml:"evaluation_criteria"`
	// Model optionally overrides the model used for this persona's runs.
	// Empty means the execution adapter picks its default.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Validate reports whether the persona has the fields a pipeline needs.
func (p *Persona) Validate() error {
	if p.ID == "" {
		return errMissing("id")
	}
	if p.Name == "" {
		return errMissing("name")
	}
	if p.Mindset == "" {
		return errMissing("mindset")
	}
	return nil
}

type fieldError string

func (e fieldError) Error() string { return "persona missing required field: " + string(e) }

func errMissing(field string) error { return fieldError(field) }
