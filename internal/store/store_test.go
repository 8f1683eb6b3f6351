package store

import (
	"reflect"
	"testing"
	"time"

	"github.com/warroomlabs/warroom/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestPipelineRoundTrip(t *testing.T) {
	s := newTestStore(t)

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(45 * time.Second)
	p := &models.Pipeline{
		ID:            "pl1",
		ProjectID:     "proj1",
		Task:          "design a rate limiter",
		Status:        models.PipelineStatusReviewing,
		Iteration:     1,
		MaxIterations: 2,
		Usage:         models.TokenUsage{InputTokens: 1200, OutputTokens: 340},
		CostUSD:       0.0421,
		CreatedAt:     started,
		UpdatedAt:     completed,
		Phases: []*models.Phase{
			{
				ID:        "ph1",
				Type:      models.PhaseThink,
				Label:     "War Room Session",
				Status:    models.PhaseStatusCompleted,
				StartedAt: &started,
				Runs: []*models.AgentRun{
					{
						ID:          "r1",
						PersonaID:   "architect",
						PersonaName: "The Architect",
						Status:      models.RunStatusCompleted,
						Output:      "Use a token bucket.\n\nSecond paragraph.",
						Usage:       models.TokenUsage{InputTokens: 600, OutputTokens: 170},
						StartedAt:   &started,
						CompletedAt: &completed,
					},
					{
						ID:          "r2",
						PersonaID:   "skeptic",
						PersonaName: "The Skeptic",
						Status:      models.RunStatusFailed,
						Error:       "stream ended unexpectedly",
					},
				},
			},
		},
	}

	if err := s.SavePipeline(p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}

	got, err := s.GetPipeline("proj1", "pl1")
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}

	if !reflect.DeepEqual(got, p) {
		t.Errorf("round-trip mismatch:\n got: %+v\nwant: %+v", got, p)
	}
}

func TestSavePipelineOverwrites(t *testing.T) {
	s := newTestStore(t)

	p := models.NewPipeline("pl1", "proj1", "task", 2)
	if err := s.SavePipeline(p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}

	p.Status = models.PipelineStatusCompleted
	if err := s.SavePipeline(p); err != nil {
		t.Fatalf("SavePipeline (second): %v", err)
	}

	got, err := s.GetPipeline("proj1", "pl1")
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if got.Status != models.PipelineStatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
}

func TestGetPipelineNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetPipeline("proj1", "missing"); err == nil {
		t.Error("expected error for missing pipeline")
	}
}

func TestListPipelinesSorted(t *testing.T) {
	s := newTestStore(t)

	base := time.Now()
	for i, id := range []string{"plC", "plA", "plB"} {
		p := models.NewPipeline(id, "proj1", "task", 1)
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.SavePipeline(p); err != nil {
			t.Fatalf("SavePipeline(%s): %v", id, err)
		}
	}

	got, err := s.ListPipelines("proj1")
	if err != nil {
		t.Fatalf("ListPipelines: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListPipelines returned %d, want 3", len(got))
	}
	// Sorted by creation time, not id.
	wantOrder := []string{"plC", "plA", "plB"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)

	p := &models.Project{
		ID:          "proj1",
		Name:        "Demo",
		Description: "demo project",
		CreatedAt:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}

	got, err := s.GetProject("proj1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("round-trip mismatch:\n got: %+v\nwant: %+v", got, p)
	}

	list, err := s.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 1 || list[0].ID != "proj1" {
		t.Errorf("ListProjects = %v", list)
	}
}

func TestWatchPipelinesNotifiesOnSave(t *testing.T) {
	s := newTestStore(t)

	// The pipelines dir must exist before watching.
	p := models.NewPipeline("pl1", "proj1", "task", 1)
	if err := s.SavePipeline(p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}

	w, err := s.WatchPipelines("proj1")
	if err != nil {
		t.Fatalf("WatchPipelines: %v", err)
	}
	defer w.Close()

	p.Status = models.PipelineStatusThinking
	if err := s.SavePipeline(p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}

	select {
	case id := <-w.Changes():
		if id != "pl1" {
			t.Errorf("change id = %q, want pl1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}
