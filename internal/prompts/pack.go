package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var embeddedPack []byte

// Example is one few-shot user/assistant exchange.
type Example struct {
	User      string `yaml:"user"`
	Assistant string `yaml:"assistant"`
}

// Pack holds the static prompt text consumed by the optimizer and generator.
type Pack struct {
	SystemPrompt        string    `yaml:"system_prompt"`
	CapabilityReference string    `yaml:"capability_reference"`
	OptimizerPrompt     string    `yaml:"optimizer_prompt"`
	DefaultResourcePlan string    `yaml:"default_resource_plan"`
	RetryDirective      string    `yaml:"retry_directive"`
	FewShot             []Example `yaml:"few_shot"`
}

// Default returns the embedded prompt pack.
func Default() *Pack {
	pack, err := parse(embeddedPack, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt pack: %v", err))
	}
	return pack
}

// Load reads a YAML prompt pack from path. Keys missing from the file keep
// their embedded values. An empty path returns the embedded pack.
func Load(path string) (*Pack, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt pack: %w", err)
	}
	pack, err := parse(data, Default())
	if err != nil {
		return nil, fmt.Errorf("prompt pack %s: %w", path, err)
	}
	return pack, nil
}

func parse(data []byte, base *Pack) (*Pack, error) {
	pack := &Pack{}
	if base != nil {
		clone := *base
		clone.FewShot = append([]Example(nil), base.FewShot...)
		pack = &clone
	}
	if err := yaml.Unmarshal(data, pack); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	pack.trim()
	if err := pack.Validate(); err != nil {
		return nil, err
	}
	return pack, nil
}

func (p *Pack) trim() {
	p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)
	p.CapabilityReference = strings.TrimSpace(p.CapabilityReference)
	p.OptimizerPrompt = strings.TrimSpace(p.OptimizerPrompt)
	p.DefaultResourcePlan = strings.TrimSpace(p.DefaultResourcePlan)
	p.RetryDirective = strings.TrimSpace(p.RetryDirective)
	for i := range p.FewShot {
		p.FewShot[i].User = strings.TrimSpace(p.FewShot[i].User)
		p.FewShot[i].Assistant = strings.TrimSpace(p.FewShot[i].Assistant)
	}
}

// Validate ensures every prompt the pipeline relies on is present.
func (p *Pack) Validate() error {
	var problems []string
	if p.SystemPrompt == "" {
		problems = append(problems, "system_prompt is empty")
	}
	if p.OptimizerPrompt == "" {
		problems = append(problems, "optimizer_prompt is empty")
	}
	if p.DefaultResourcePlan == "" {
		problems = append(problems, "default_resource_plan is empty")
	}
	if p.RetryDirective == "" {
		problems = append(problems, "retry_directive is empty")
	}
	for i, example := range p.FewShot {
		if example.User == "" || example.Assistant == "" {
			problems = append(problems, fmt.Sprintf("few_shot[%d] must set user and assistant", i))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
