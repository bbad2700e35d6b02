package ai

import (
	"fmt"
	"strings"
)

func evaluatorSystemPrompt() string {
	return "You are a strict language-learning writing examiner. Grade the learner's essay against every rubric " +
		"criterion on a 0-100 scale. Respond with ONLY a JSON object, no prose and no markdown, of the form " +
		`{"categories":[{"key":"<criterion name>","label":"<criterion name>","score":<0-100>,"comment":"<one or two sentences>"}],` +
		`"overallFeedback":"<encouraging summary with concrete next steps>"}. ` +
		"Use the criterion names exactly as given for key and label."
}

func buildUserPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Challenge\n")
	builder.WriteString(input.Title)
	if input.Language != "" {
		builder.WriteString("\n\n## Target Language\n")
		builder.WriteString(input.Language)
	}
	if input.Category != "" || input.Difficulty != "" {
		builder.WriteString("\n\n## Level\n")
		builder.WriteString(strings.TrimSpace(input.Category + " " + input.Difficulty))
	}
	builder.WriteString("\n\n## Prompt\n")
	builder.WriteString(input.Prompt)
	builder.WriteString("\n\n## Rubric\n")
	for _, criterion := range input.Rubric {
		fmt.Fprintf(&builder, "- %s (weight %g)", criterion.Name, criterion.Weight)
		if criterion.Description != "" {
			builder.WriteString(": ")
			builder.WriteString(criterion.Description)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("\n## Essay\n")
	builder.WriteString(input.Essay)
	builder.WriteString("\n\nReturn JSON only.")
	return builder.String()
}
