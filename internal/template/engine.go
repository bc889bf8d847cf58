package template

import (
	"bytes"
	"fmt"
	"strings"
	textTemplate "text/template"

	"github.com/nawinsharma/kandid/internal/models"
)

// Engine renders campaign messages
type Engine struct{}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{}
}

// Validate checks that every message parses and only uses known placeholders
func (e *Engine) Validate(m Messages) error {
	funcs := sampleFuncs()
	return m.each(func(field, msg string) error {
		if _, err := parse(field, msg, funcs); err != nil {
			return &FieldError{Field: field, Err: err}
		}
		return nil
	})
}

// Render fills every message of c for lead
func (e *Engine) Render(c *models.Campaign, lead *models.Lead) (*Messages, error) {
	funcs := leadFuncs(c, lead)
	out := &Messages{Followups: make([]string, 0, len(c.FollowupMessages))}

	src := Messages{Request: c.RequestMessage, Connection: c.ConnectionMessage, Followups: c.FollowupMessages}
	err := src.each(func(field, msg string) error {
		text, err := render(field, msg, funcs)
		if err != nil {
			return &FieldError{Field: field, Err: err}
		}
		switch field {
		case "requestMessage":
			out.Request = text
		case "connectionMessage":
			out.Connection = text
		default:
			out.Followups = append(out.Followups, text)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sample renders c against the example values of Variables
func (e *Engine) Sample(c *models.Campaign) (*Messages, error) {
	lead := &models.Lead{}
	for _, v := range Variables {
		switch v.Name {
		case "name":
			lead.Name = v.Example
		case "title":
			lead.Title = v.Example
		case "company":
			lead.Company = v.Example
		}
	}
	return e.Render(c, lead)
}

func (m Messages) each(fn func(field, msg string) error) error {
	if err := fn("requestMessage", m.Request); err != nil {
		return err
	}
	if err := fn("connectionMessage", m.Connection); err != nil {
		return err
	}
	for i, msg := range m.Followups {
		if err := fn(fmt.Sprintf("followupMessages[%d]", i), msg); err != nil {
			return err
		}
	}
	return nil
}

func parse(name, msg string, funcs textTemplate.FuncMap) (*textTemplate.Template, error) {
	return textTemplate.New(name).Funcs(funcs).Parse(msg)
}

func render(name, msg string, funcs textTemplate.FuncMap) (string, error) {
	if msg == "" {
		return "", nil
	}
	t, err := parse(name, msg, funcs)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, nil); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func leadFuncs(c *models.Campaign, lead *models.Lead) textTemplate.FuncMap {
	parts := strings.Fields(lead.Name)
	var first, last string
	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	return constFuncs(map[string]string{
		"firstName": first,
		"lastName":  last,
		"name":      strings.TrimSpace(lead.Name),
		"title":     lead.Title,
		"company":   lead.Company,
		"campaign":  c.Name,
	})
}

func sampleFuncs() textTemplate.FuncMap {
	values := make(map[string]string, len(Variables))
	for _, v := range Variables {
		values[v.Name] = v.Example
	}
	return constFuncs(values)
}

func constFuncs(values map[string]string) textTemplate.FuncMap {
	funcs := make(textTemplate.FuncMap, len(values))
	for name, value := range values {
		funcs[name] = func() string { return value }
	}
	return funcs
}
