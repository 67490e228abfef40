package prompts

import (
	"fmt"
	"strings"

	"manimgen/internal/services/llm"
)

// OptimizerMessages builds the enrichment conversation for a description.
func (p *Pack) OptimizerMessages(description string, spec VideoSpec) []llm.Message {
	user := fmt.Sprintf("[DESCRIPTION]\n%s\n\n%s", strings.TrimSpace(description), spec.Notes())
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.systemWithReference(p.OptimizerPrompt)},
		{Role: llm.RoleUser, Content: user},
	}
}

// AttemptPrompt returns the prompt for attempt n. Attempts after the first
// carry the retry marker and the simplification directive.
func (p *Pack) AttemptPrompt(prompt string, attempt int) string {
	if attempt <= 1 {
		return prompt
	}
	return fmt.Sprintf("%s\n\n[RETRY #%d]\n%s", prompt, attempt, p.RetryDirective)
}

// GenerationMessages builds the code generation conversation: system prompt,
// few-shot exchanges, then the attempt prompt with plan and video notes.
func (p *Pack) GenerationMessages(prompt, resourcePlan string, spec VideoSpec) []llm.Message {
	messages := make([]llm.Message, 0, 2+2*len(p.FewShot))
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: p.systemWithReference(p.SystemPrompt)})
	for _, example := range p.FewShot {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: example.User},
			llm.Message{Role: llm.RoleAssistant, Content: example.Assistant},
		)
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	if plan := strings.TrimSpace(resourcePlan); plan != "" {
		b.WriteString("\n\n[RESOURCE PLAN]\n")
		b.WriteString(plan)
	}
	b.WriteString("\n\n")
	b.WriteString(spec.Notes())
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: b.String()})
	return messages
}

func (p *Pack) systemWithReference(system string) string {
	if p.CapabilityReference == "" {
		return system
	}
	return system + "\n\n" + p.CapabilityReference
}
