package orchestrator

import (
	"fmt"
	"strings"

	"github.com/warroomlabs/warroom/pkg/models"
)

// Prompt construction. These are pure functions of (persona, project,
// task, prior outputs) so they are trivially testable and carry no
// state between phases.

// majorIssuesMarker is the convention-based signal a reviewer embeds
// in its output to request another build iteration.
const majorIssuesMarker = "MAJOR_ISSUES"

// HasMajorIssues reports whether any completed review flagged blocking
// severity. The match is a case-insensitive substring check, so
// reviewers can phrase the verdict however they like as long as the
// marker appears.
func HasMajorIssues(reviews []*models.AgentRun) bool {
	for _, r := range reviews {
		if strings.Contains(strings.ToUpper(r.Output), majorIssuesMarker) {
			return true
		}
	}
	return false
}

// projectContext renders the optional project framing block.
func projectContext(project *models.Project) string {
	if project == nil {
		return ""
	}
	var b strings.Builder
	if project.Name != "" {
		fmt.Fprintf(&b, "Project: %s\n", project.Name)
	}
	if project.Description != "" {
		fmt.Fprintf(&b, "Project context: %s\n", project.Description)
	}
	if project.WorkspacePath != "" {
		fmt.Fprintf(&b, "Workspace: %s\n", project.WorkspacePath)
	}
	return b.String()
}

// ThinkSystemPrompt builds the system prompt for one persona's
// ideation run.
func ThinkSystemPrompt(persona *models.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", persona.Name)
	if persona.Role != "" {
		fmt.Fprintf(&b, ", %s", persona.Role)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Mindset: %s\n", persona.Mindset)
	if persona.Knowledge != "" {
		fmt.Fprintf(&b, "Expertise: %s\n", persona.Knowledge)
	}
	b.WriteString("\nAnalyze the task from your perspective. Propose a concrete approach, call out risks you see, and be specific about tradeoffs. Do not write the final implementation; produce the thinking that should shape it.")
	return b.String()
}

// ThinkPrompt builds the user prompt for one persona's ideation run.
func ThinkPrompt(project *models.Project, task string) string {
	var b strings.Builder
	if pc := projectContext(project); pc != "" {
		b.WriteString(pc)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Task:\n%s", task)
	return b.String()
}

// BuildSystemPrompt is the system prompt for the synthesizer/builder
// run shared by the first build and every iteration.
const BuildSystemPrompt = "You are the Builder. You synthesize the perspectives of a panel of advisors into one coherent, complete deliverable. Resolve conflicts between advisors by picking the strongest position and saying why. Produce the deliverable itself, not a plan for producing it."

// BuildPrompt builds the user prompt for the first build run from the
// successful think outputs.
func BuildPrompt(project *models.Project, task string, thinkRuns []*models.AgentRun) string {
	var b strings.Builder
	if pc := projectContext(project); pc != "" {
		b.WriteString(pc)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	b.WriteString("Advisor perspectives:\n")
	for _, r := range thinkRuns {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", r.PersonaName, r.Output)
	}
	b.WriteString("\nSynthesize these perspectives into the complete deliverable for the task.")
	return b.String()
}

// IteratePrompt builds the user prompt for a fix-up build run from the
// previous output and the review feedback. It directs surgical fixes
// rather than a rewrite.
func IteratePrompt(project *models.Project, task, previousOutput string, reviews []*models.AgentRun) string {
	var b strings.Builder
	if pc := projectContext(project); pc != "" {
		b.WriteString(pc)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Your previous deliverable:\n%s\n\n", previousOutput)
	b.WriteString("Review feedback:\n")
	for _, r := range reviews {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", r.PersonaName, r.Output)
	}
	b.WriteString("\nRevise the deliverable to address the feedback. Make surgical fixes to the flagged problems; do not rewrite parts the reviewers did not object to. Return the full revised deliverable.")
	return b.String()
}

// ReviewSystemPrompt builds the system prompt for one persona's review
// run, including the verdict convention the decision loop keys on.
func ReviewSystemPrompt(persona *models.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", persona.Name)
	if persona.Role != "" {
		fmt.Fprintf(&b, ", %s", persona.Role)
	}
	b.WriteString(", reviewing a deliverable.\n\n")
	fmt.Fprintf(&b, "Mindset: %s\n", persona.Mindset)
	if persona.EvaluationCriteria != "" {
		fmt.Fprintf(&b, "Evaluation criteria: %s\n", persona.EvaluationCriteria)
	}
	fmt.Fprintf(&b, "\nReview the deliverable against your criteria. End your review with a verdict line: write %q if you found problems that must block acceptance, or \"ACCEPTABLE\" otherwise. Only use %q for genuinely blocking problems.", majorIssuesMarker, majorIssuesMarker)
	return b.String()
}

// ReviewPrompt builds the user prompt for one persona's review run.
func ReviewPrompt(project *models.Project, task, buildOutput string) string {
	var b strings.Builder
	if pc := projectContext(project); pc != "" {
		b.WriteString(pc)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Deliverable under review:\n%s", buildOutput)
	return b.String()
}
