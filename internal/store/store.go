// Package store provides file-backed JSON persistence for War Room
// records. Each pipeline is one document keyed by id under its parent
// project; every save overwrites the whole document.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/warroomlabs/warroom/pkg/models"
)

// Store manages War Room records on disk.
//
// Layout under baseDir:
//
//	projects/<projectID>/project.json
//	projects/<projectID>/pipelines/<pipelineID>.json
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Open creates a Store rooted at baseDir, creating the directory if needed.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "projects"), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) projectDir(projectID string) string {
	return filepath.Join(s.baseDir, "projects", projectID)
}

func (s *Store) projectPath(projectID string) string {
	return filepath.Join(s.projectDir(projectID), "project.json")
}

func (s *Store) pipelinesDir(projectID string) string {
	return filepath.Join(s.projectDir(projectID), "pipelines")
}

func (s *Store) pipelinePath(projectID, pipelineID string) string {
	return filepath.Join(s.pipelinesDir(projectID), pipelineID+".json")
}

// SaveProject writes a project record, overwriting any existing one.
func (s *Store) SaveProject(p *models.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project id is empty")
	}
	return WriteJSON(s.projectPath(p.ID), p)
}

// GetProject reads a project record by id.
func (s *Store) GetProject(id string) (*models.Project, error) {
	var p models.Project
	if err := ReadJSON(s.projectPath(id), &p); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project %s not found", id)
		}
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all project records sorted by creation time.
func (s *Store) ListProjects() ([]*models.Project, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "projects"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	var projects []*models.Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := s.GetProject(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		projects = append(projects, p)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// SavePipeline overwrites the pipeline document wholesale.
// This is the persistence call made after every state-machine mutation,
// so a mid-run reader always sees the last known-good snapshot.
func (s *Store) SavePipeline(p *models.Pipeline) error {
	if p.ID == "" || p.ProjectID == "" {
		return fmt.Errorf("pipeline id and project id are required")
	}
	return WriteJSON(s.pipelinePath(p.ProjectID, p.ID), p)
}

// GetPipeline reads a pipeline record by project and id.
func (s *Store) GetPipeline(projectID, pipelineID string) (*models.Pipeline, error) {
	var p models.Pipeline
	if err := ReadJSON(s.pipelinePath(projectID, pipelineID), &p); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pipeline %s not found in project %s", pipelineID, projectID)
		}
		return nil, err
	}
	return &p, nil
}

// ListPipelines returns the pipelines of a project sorted by creation time.
func (s *Store) ListPipelines(projectID string) ([]*models.Pipeline, error) {
	entries, err := os.ReadDir(s.pipelinesDir(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pipelines dir: %w", err)
	}

	var pipelines []*models.Pipeline
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		p, err := s.GetPipeline(projectID, id)
		if err != nil {
			continue // skip broken entries
		}
		pipelines = append(pipelines, p)
	}

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].CreatedAt.Before(pipelines[j].CreatedAt)
	})
	return pipelines, nil
}

// DeletePipeline removes a pipeline record.
func (s *Store) DeletePipeline(projectID, pipelineID string) error {
	path := s.pipelinePath(projectID, pipelineID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("pipeline %s not found in project %s", pipelineID, projectID)
	}
	return os.Remove(path)
}
