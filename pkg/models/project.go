package models

import "time"

// Project groups pipelines under a shared working context.
type Project struct {
	// ID is the unique identifier for this project.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Description provides context injected into agent prompts.
	Description string `json:"description,omitempty"`
	// WorkspacePath is the directory agents treat as the project root.
	WorkspacePath string `json:"workspace_path,omitempty"`
	// CreatedAt is when the project record was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the project record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}
