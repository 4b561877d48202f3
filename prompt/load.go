package prompt

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"poemchain/apperr"
)

type fileConfig struct {
	Config       `yaml:",inline"`
	TemplatePath string `yaml:"template_path"`
}

// LoadFile reads a YAML prompt definition. The template text comes either
// from the template key or from template_path, resolved relative to the
// definition file. When input_variables is absent it is inferred as in
// NewInferred.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfiguration, "read prompt file")
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfiguration, "decode prompt file").WithDetail(path)
	}

	if fc.TemplatePath != "" {
		if fc.Template != "" {
			return nil, apperr.Configuration("prompt file %s sets both template and template_path", path)
		}
		tp := fc.TemplatePath
		if !filepath.IsAbs(tp) {
			tp = filepath.Join(filepath.Dir(path), tp)
		}
		text, err := os.ReadFile(tp)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeConfiguration, "read template file")
		}
		fc.Template = string(text)
	}

	return NewInferred(fc.Config)
}
