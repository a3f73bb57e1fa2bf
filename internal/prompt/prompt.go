// Package prompt renders the instruction sent to the text-generation service.
package prompt

import (
	_ "embed"
	"errors"
	"strings"
	"text/template"
)

// Separator is the token users type between unrelated projects. The
// generator is told never to merge content across it.
const Separator = "//"

// Priority labels as spoken by the generator.
const (
	LabelHigh   = "높음"
	LabelNormal = "보통"
	LabelLow    = "낮음"
)

// ErrEmptyNote is returned when the note is empty or whitespace only.
var ErrEmptyNote = errors.New("meeting note is empty")

//go:embed extract.tmpl
var extractTemplate string

var tmpl = template.Must(template.New("extract").Option("missingkey=error").Parse(extractTemplate))

type data struct {
	Note            string
	Separator       string
	PriorityLabels  string
	PriorityChoices string
	DefaultPriority string
}

// Build renders the extraction instruction for note. The note is embedded
// verbatim; identical input always yields identical output.
func Build(note string) (string, error) {
	if strings.TrimSpace(note) == "" {
		return "", ErrEmptyNote
	}

	var b strings.Builder
	err := tmpl.Execute(&b, data{
		Note:            note,
		Separator:       Separator,
		PriorityLabels:  "'" + LabelHigh + "', '" + LabelNormal + "', '" + LabelLow + "'",
		PriorityChoices: LabelHigh + " | " + LabelNormal + " | " + LabelLow,
		DefaultPriority: LabelNormal,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
