package prompts

import (
	"maps"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
)

// TemplateFormat is the format of the template.
type TemplateFormat string

const (
	// TemplateFormatGoTemplate is the format for go-template, with sprig functions.
	TemplateFormatGoTemplate TemplateFormat = "go-template"
	// TemplateFormatJinja2 is the format for jinja2.
	TemplateFormatJinja2 TemplateFormat = "jinja2"
)

// ErrInvalidTemplateFormat is the error when the template format is invalid.
var ErrInvalidTemplateFormat = errors.New("invalid template format")

// PromptTemplate contains common fields for all prompt templates.
type PromptTemplate struct {
	// Template is the prompt template.
	Template string

	// A list of variable names the prompt template expects.
	InputVariables []string

	// TemplateFormat is the format of the prompt template.
	TemplateFormat TemplateFormat

	// PartialVariables represents a map of variable names to values,
	// the values passed to Format override them.
	PartialVariables map[string]any
}

// NewPromptTemplate returns a new go-template prompt template.
func NewPromptTemplate(template string, inputVars []string) PromptTemplate {
	return PromptTemplate{
		Template:       template,
		InputVariables: inputVars,
		TemplateFormat: TemplateFormatGoTemplate,
	}
}

// Format formats the prompt template and returns a string value.
func (p PromptTemplate) Format(values map[string]any) (string, error) {
	resolved := make(map[string]any, len(p.PartialVariables)+len(values))
	maps.Copy(resolved, p.PartialVariables)
	maps.Copy(resolved, values)

	for _, name := range p.InputVariables {
		if _, ok := resolved[name]; !ok {
			return "", errors.Newf("template: missing input variable %q", name)
		}
	}
	return RenderTemplate(p.Template, p.TemplateFormat, resolved)
}

// GetInputVariables returns the input variables the prompt expects.
func (p PromptTemplate) GetInputVariables() []string {
	return p.InputVariables
}

// FormatFromFileName returns jinja2 for .j2 and .jinja files,
// and go-template otherwise.
func FormatFromFileName(name string) TemplateFormat {
	if strings.HasSuffix(name, ".j2") || strings.HasSuffix(name, ".jinja") || strings.HasSuffix(name, ".jinja2") {
		return TemplateFormatJinja2
	}
	return TemplateFormatGoTemplate
}

// RenderTemplate renders the template with the given values.
func RenderTemplate(tmpl string, format TemplateFormat, values map[string]any) (string, error) {
	switch format {
	case TemplateFormatGoTemplate, "":
		return renderGoTemplate(tmpl, values)
	case TemplateFormatJinja2:
		return renderJinja2(tmpl, values)
	}
	return "", errors.Wrapf(ErrInvalidTemplateFormat, "format %q", format)
}

func renderGoTemplate(tmpl string, values map[string]any) (string, error) {
	parsed, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "template: parse")
	}
	var sb strings.Builder
	if err = parsed.Execute(&sb, values); err != nil {
		return "", errors.Wrap(err, "template: execute")
	}
	return sb.String(), nil
}

func renderJinja2(tmpl string, values map[string]any) (string, error) {
	parsed, err := gonja.FromString(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "template: parse")
	}
	out, err := parsed.Execute(values)
	if err != nil {
		return "", errors.Wrap(err, "template: execute")
	}
	return out, nil
}
