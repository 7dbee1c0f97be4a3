// Package note renders the human readable text stored with each activity record.
package note

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template names
const (
	PushNote        = "push_note"
	PullRequestNote = "pr_note"
)

// shortHashLength matches the abbreviation Bitbucket shows in its UI
const shortHashLength = 11

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer turns a named note template and its bindings into text
type Renderer interface {
	Render(name string, data any) (string, error)
}

// PushData is bound to the push_note template
type PushData struct {
	ActorName   string
	ProjectName string
	RepoName    string
	Branch      string
	ChangeType  string
	FromHash    string
	ToHash      string
	FromURL     string
	ToURL       string
}

// PullRequestData is bound to the pr_note template
type PullRequestData struct {
	Status      string
	ActorName   string
	ProjectName string
	RepoName    string
	FromBranch  string
	ToBranch    string
	Title       string
	PRURL       string
	Number      int64
}

// TemplateRenderer renders the embedded text templates
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses the embedded note templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.New("notes").Funcs(funcMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse note templates: %w", err)
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

// Render executes the named template
func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	t := r.tmpl.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("unknown note template %q", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"short":    shortHash,
		"link":     link,
		"code":     code,
		"actor":    actor,
		"project":  project,
		"pushVerb": pushVerb,
		"title": func(s string) string {
			// Casers are stateful, so one per call.
			return cases.Title(language.English).String(s)
		},
	}
}

func shortHash(hash string) string {
	if len(hash) > shortHashLength {
		return hash[:shortHashLength]
	}
	return hash
}

func link(text, url string) string {
	if text == "" {
		text = "-"
	}
	if url == "" {
		return text
	}
	return fmt.Sprintf("[%s](%s)", text, url)
}

func code(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + s + "`"
}

func actor(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}

func project(projectName, repoName string) string {
	switch {
	case projectName != "" && repoName != "":
		return projectName + "/" + repoName
	case repoName != "":
		return repoName
	case projectName != "":
		return projectName
	default:
		return "unknown repository"
	}
}

// pushVerb describes a Bitbucket ref change type (ADD, UPDATE, DELETE)
func pushVerb(changeType string) string {
	switch strings.ToUpper(changeType) {
	case "ADD":
		return "created"
	case "DELETE":
		return "deleted"
	default:
		return "pushed to"
	}
}
