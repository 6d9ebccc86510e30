package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"slices"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/charmbracelet/lipgloss"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/retrieval"
)

type styleSet struct {
	Title  lipgloss.Style
	Route  lipgloss.Style
	Answer lipgloss.Style
	Source lipgloss.Style
	Dim    lipgloss.Style
	Error  lipgloss.Style
}

var styles = styleSet{
	Title: lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#1F6FEB", Dark: "#79C0FF"}),
	Route: lipgloss.NewStyle().Padding(0, 1).
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.AdaptiveColor{Light: "#FFD866", Dark: "#DDDD77"}),
	Answer: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
	Source: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"}),
	Dim:   lipgloss.NewStyle().Faint(true),
	Error: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87")),
}

// sourceView is one retrieved document as shown to the user.
type sourceView struct {
	Source  string
	Page    string
	Snippet string
}

const sourcesTemplate = `{{- range $i, $d := . }}
[{{ add1 $i }}] {{ $d.Source | trunc 60 }}{{ if ne $d.Page "unknown-page" }}, page {{ $d.Page }}{{ end }}
    {{ $d.Snippet | replace "\n" " " | trim | abbrev 120 }}
{{- end }}`

var sourcesTmpl = texttemplate.Must(texttemplate.New("sources").Funcs(sprig.TxtFuncMap()).Parse(sourcesTemplate))

func sourceViews(docs []rag.Document) []sourceView {
	views := make([]sourceView, 0, len(docs))
	for _, doc := range docs {
		id := rag.IdentityOf(doc)
		views = append(views, sourceView{Source: id.Source, Page: id.Page, Snippet: doc.Content})
	}
	return views
}

// formatSources lists the documents used for an answer, one per line.
func formatSources(docs []rag.Document) (string, error) {
	var buf bytes.Buffer
	if err := sourcesTmpl.Execute(&buf, sourceViews(docs)); err != nil {
		return "", err
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}

// answerText returns the content of the last assistant turn.
func answerText(state retrieval.State) string {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role.IsAssistant() {
			return state.Messages[i].Content
		}
	}
	return ""
}

func routeLabel(state retrieval.State) string {
	if state.Route == nil {
		return "unrouted"
	}
	return string(*state.Route)
}

// printAnswer writes the styled answer and its sources.
func printAnswer(w io.Writer, state retrieval.State) error {
	fmt.Fprintln(w, styles.Route.Render(routeLabel(state)))
	fmt.Fprintln(w, styles.Answer.Render(answerText(state)))

	if len(state.Documents) == 0 {
		return nil
	}
	sources, err := formatSources(state.Documents)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, styles.Title.Render("Sources"))
	fmt.Fprintln(w, styles.Source.Render(sources))
	return nil
}

// printTrace writes the node spans recorded by tracer in start order and
// clears it.
func printTrace(w io.Writer, tracer *graph.Tracer) {
	if tracer == nil {
		return
	}
	var spans []*graph.TraceSpan
	for _, span := range tracer.GetSpans() {
		if span.NodeName != "" && span.NodeName != "graph" {
			spans = append(spans, span)
		}
	}
	slices.SortFunc(spans, func(a, b *graph.TraceSpan) int {
		return a.StartTime.Compare(b.StartTime)
	})

	for _, span := range spans {
		line := fmt.Sprintf("%-20s %10s", span.NodeName, span.Duration.Round(time.Millisecond))
		if span.Error != nil {
			line += "  " + styles.Error.Render(span.Error.Error())
		}
		fmt.Fprintln(w, styles.Dim.Render(line))
	}
	tracer.Clear()
}

// markdownToHTML renders model output as sanitized HTML.
func markdownToHTML(md string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	doc := parser.NewWithExtensions(extensions).Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{ .Query }}</title></head>
<body>
<h1>{{ .Query }}</h1>
<p><em>route: {{ .Route }}</em></p>
{{ .Answer }}
{{- if .Sources }}
<h2>Sources</h2>
<ol>
{{- range .Sources }}
<li>{{ .Source }}{{ if ne .Page "unknown-page" }}, page {{ .Page }}{{ end }}</li>
{{- end }}
</ol>
{{- end }}
</body>
</html>
`))

// writeHTML renders the answer of state as a standalone HTML page.
func writeHTML(w io.Writer, state retrieval.State) error {
	return pageTmpl.Execute(w, struct {
		Query   string
		Route   string
		Answer  template.HTML
		Sources []sourceView
	}{
		Query:   state.Query,
		Route:   routeLabel(state),
		Answer:  template.HTML(markdownToHTML(answerText(state))), // #nosec G203 sanitized by bluemonday
		Sources: sourceViews(state.Documents),
	})
}

func writeHTMLFile(path string, state retrieval.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeHTML(f, state); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
