// Package prompt implements text templates with named {placeholder} markers
// and a declared list of input variables.
package prompt

import (
	"maps"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"poemchain/apperr"
)

// Config describes a template before validation.
type Config struct {
	Name             string            `yaml:"name" mapstructure:"name"`
	InputVariables   []string          `yaml:"input_variables" mapstructure:"input_variables"`
	Template         string            `yaml:"template" mapstructure:"template"`
	PartialVariables map[string]string `yaml:"partial_variables" mapstructure:"partial_variables"`
}

// Template is immutable once built; Partial returns a new value.
type Template struct {
	name           string
	inputVariables []string
	partials       map[string]string
	prompt         prompts.PromptTemplate
}

func newPromptTemplate(text string, inputs []string, partials map[string]string) prompts.PromptTemplate {
	vars := make(map[string]any, len(partials))
	for name, v := range partials {
		vars[name] = v
	}
	return prompts.PromptTemplate{
		Template:         text,
		InputVariables:   slices.Clone(inputs),
		TemplateFormat:   prompts.TemplateFormatFString,
		PartialVariables: vars,
	}
}

// New validates cfg and builds a Template. Every placeholder must be declared
// either as an input variable or as a partial variable, and every declared
// name must be used by the template.
func New(cfg Config) (*Template, error) {
	if strings.TrimSpace(cfg.Template) == "" {
		return nil, apperr.Configuration("template text is empty")
	}

	used, err := placeholders(cfg.Template)
	if err != nil {
		return nil, err
	}

	declared := make([]string, 0, len(cfg.InputVariables)+len(cfg.PartialVariables))
	for _, name := range cfg.InputVariables {
		if !identifier.MatchString(name) {
			return nil, apperr.Configuration("invalid input variable name %q", name)
		}
		if slices.Contains(declared, name) {
			return nil, apperr.Configuration("input variable %q declared more than once", name)
		}
		declared = append(declared, name)
	}
	for name := range cfg.PartialVariables {
		if slices.Contains(declared, name) {
			return nil, apperr.Configuration("variable %q is both an input and a partial variable", name)
		}
		declared = append(declared, name)
	}

	// Rendering with every declared name bound fails on malformed braces and
	// on placeholders that are not declared.
	if err := prompts.CheckValidTemplate(cfg.Template, prompts.TemplateFormatFString, declared); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfiguration, "invalid template")
	}

	for _, name := range cfg.InputVariables {
		if !slices.Contains(used, name) {
			return nil, apperr.Configuration("input variable %q is not used by the template", name)
		}
	}
	for name := range cfg.PartialVariables {
		if !slices.Contains(used, name) {
			return nil, apperr.Configuration("partial variable %q is not used by the template", name)
		}
	}

	return &Template{
		name:           cfg.Name,
		inputVariables: slices.Clone(cfg.InputVariables),
		partials:       maps.Clone(cfg.PartialVariables),
		prompt:         newPromptTemplate(cfg.Template, cfg.InputVariables, cfg.PartialVariables),
	}, nil
}

// FromText builds a Template whose input variables are the placeholders of
// text, in order of first appearance.
func FromText(text string) (*Template, error) {
	return NewInferred(Config{Template: text})
}

// NewInferred is like New, but when cfg declares no input variables they are
// taken from the placeholders that are not partial variables.
func NewInferred(cfg Config) (*Template, error) {
	if len(cfg.InputVariables) > 0 {
		return New(cfg)
	}

	names, err := placeholders(cfg.Template)
	if err != nil {
		return nil, err
	}
	cfg.InputVariables = nil
	for _, name := range names {
		if _, partial := cfg.PartialVariables[name]; !partial {
			cfg.InputVariables = append(cfg.InputVariables, name)
		}
	}
	return New(cfg)
}

// MustNew is like New but panics on error. Use it for templates known at compile time.
func MustNew(cfg Config) *Template {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string {
	return t.name
}

// Text returns the raw template string.
func (t *Template) Text() string {
	return t.prompt.Template
}

// InputVariables returns the names that must be supplied to Render.
func (t *Template) InputVariables() []string {
	return slices.Clone(t.inputVariables)
}

func (t *Template) PartialVariables() map[string]string {
	return maps.Clone(t.partials)
}

// Render substitutes values into the template. Values for undeclared names
// are ignored. A supplied value takes precedence over a partial.
func (t *Template) Render(values map[string]string) (string, error) {
	var missing []string
	for _, name := range t.inputVariables {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &apperr.MissingVariableError{Variables: missing}
	}

	args := make(map[string]any, len(values))
	for name, v := range values {
		args[name] = v
	}
	out, err := t.prompt.Format(args)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeConfiguration, "render template")
	}
	return out, nil
}

// LangChain returns the template as a langchaingo prompt, for use with
// langchaingo chains.
func (t *Template) LangChain() prompts.PromptTemplate {
	return newPromptTemplate(t.prompt.Template, t.inputVariables, t.partials)
}

// Partial returns a new Template with the given input variables bound.
func (t *Template) Partial(values map[string]string) (*Template, error) {
	partials := maps.Clone(t.partials)
	if partials == nil {
		partials = make(map[string]string, len(values))
	}
	for name, v := range values {
		if !slices.Contains(t.inputVariables, name) {
			return nil, apperr.Configuration("cannot bind %q: not an input variable of the template", name)
		}
		partials[name] = v
	}

	inputs := slices.DeleteFunc(slices.Clone(t.inputVariables), func(name string) bool {
		_, bound := values[name]
		return bound
	})

	return &Template{
		name:           t.name,
		inputVariables: inputs,
		partials:       partials,
		prompt:         newPromptTemplate(t.prompt.Template, inputs, partials),
	}, nil
}
