package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Persona is the policy document the system instruction is rendered from.
type Persona struct {
	Name    string   `yaml:"name"`
	Mission string   `yaml:"mission"`
	Goals   []string `yaml:"goals"`
	Phases  []Phase  `yaml:"phases"`
	Rules   []string `yaml:"rules"`
	Style   string   `yaml:"style"`
}

type Phase struct {
	Name        string `yaml:"name"`
	Instruction string `yaml:"instruction"`
}

func Parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("prompt: parse persona: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func LoadFile(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read persona %q: %w", path, err)
	}
	return Parse(data)
}

func (p *Persona) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("prompt: persona name is required"))
	}
	if strings.TrimSpace(p.Mission) == "" {
		errs = append(errs, errors.New("prompt: persona mission is required"))
	}
	if len(p.Phases) == 0 {
		errs = append(errs, errors.New("prompt: persona needs at least one phase"))
	}
	return errors.Join(errs...)
}

var instructionTemplate = template.Must(template.New("system").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`You are {{.Name}}.
{{.Mission}}
{{if .Goals}}
Goals:
{{range .Goals}}- {{.}}
{{end}}{{end}}
Work in this loop:
{{range $i, $p := .Phases}}{{inc $i}}. {{$p.Name}}: {{$p.Instruction}}
{{end}}{{if .Rules}}
Rules:
{{range .Rules}}- {{.}}
{{end}}{{end}}{{if .Style}}
Style: {{.Style}}
{{end}}`))

// SystemInstruction renders the persona into the model's system prompt.
func (p *Persona) SystemInstruction() string {
	var b bytes.Buffer
	if err := instructionTemplate.Execute(&b, p); err != nil {
		return ""
	}
	return strings.TrimSpace(b.String())
}
