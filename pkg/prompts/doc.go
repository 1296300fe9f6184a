// Package prompts renders prompt templates in go-template (with sprig functions)
// or jinja2 format.
package prompts
