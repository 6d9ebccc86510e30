package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/ragrouter/config"
	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/message"
	"github.com/smallnest/ragrouter/prompt"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/retrieval"
)

func runCommand(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	c := &cli{out: &out, in: strings.NewReader(in)}
	root := newRootCommand(c)
	root.SetArgs(append(args, "--log-level", "none"))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGraphCommand(t *testing.T) {
	out, err := runCommand(t, "", "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart TD")
	assert.Contains(t, out, "checkQueryType -.-> retrieveDocuments")

	out, err = runCommand(t, "", "graph", "--format", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "retrieveDocuments -> generateResponse")

	out, err = runCommand(t, "", "graph", "-f", "ascii")
	require.NoError(t, err)
	assert.Contains(t, out, "directAnswer (?)")

	_, err = runCommand(t, "", "graph", "--format", "svg")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRootCommand_InvalidSettings(t *testing.T) {
	t.Setenv("RAGROUTER_RETRIEVER", "elasticsearch")
	_, err := runCommand(t, "", "graph")
	assert.ErrorContains(t, err, "unknown retriever backend")
}

func TestFormatSources(t *testing.T) {
	out, err := formatSources([]rag.Document{
		{Content: "Revenue grew\n12% in Q3.", Metadata: map[string]any{"source": "reportA.pdf", "page": 3}},
		{Content: "No page here.", Metadata: map[string]any{"source": "notes.txt"}},
	})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[1] reportA.pdf, page 3", lines[0])
	assert.Equal(t, "    Revenue grew 12% in Q3.", lines[1])
	assert.Equal(t, "[2] notes.txt", lines[2])
}

func TestMarkdownToHTML(t *testing.T) {
	out := string(markdownToHTML("**bold** answer <script>alert(1)</script> [link](https://example.com)"))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.NotContains(t, out, "<script>")
}

func routed(r retrieval.Route) *retrieval.Route {
	return &r
}

func TestWriteHTML(t *testing.T) {
	state := retrieval.State{
		Query: "What changed?",
		Route: routed(retrieval.RouteRetrieve),
		Documents: []rag.Document{
			{Content: "x", Metadata: map[string]any{"source": "reportA.pdf", "page": 3}},
		},
		Messages: []message.Turn{
			message.HumanTurn("What changed?"),
			message.AssistantTurn("Revenue *grew*."),
		},
	}

	path := filepath.Join(t.TempDir(), "answer.html")
	require.NoError(t, writeHTMLFile(path, state))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(content)
	assert.Contains(t, page, "<title>What changed?</title>")
	assert.Contains(t, page, "<em>grew</em>")
	assert.Contains(t, page, "<li>reportA.pdf, page 3</li>")
	assert.Contains(t, page, "route: retrieve")
}

type scriptedAnswerer struct {
	histories [][]message.Turn
	fail      string
}

func (s *scriptedAnswerer) Invoke(ctx context.Context, query string, history []message.Turn, cfg *graph.Config) (retrieval.State, error) {
	s.histories = append(s.histories, history)
	if query == s.fail {
		return retrieval.State{}, errors.New("model unavailable")
	}
	route := retrieval.RouteDirect
	return retrieval.State{
		Query:    query,
		Route:    &route,
		Messages: append(append([]message.Turn{}, history...), message.HumanTurn(query), message.AssistantTurn("re: "+query)),
	}, nil
}

func TestChatLoop(t *testing.T) {
	var out bytes.Buffer
	c := &cli{out: &out, in: strings.NewReader("hello\n\nagain\nbroken\n/reset\nfresh\n/exit\nignored\n")}
	answerer := &scriptedAnswerer{fail: "broken"}

	require.NoError(t, chatLoop(context.Background(), c, answerer, nil, &graph.Config{}))

	require.Len(t, answerer.histories, 4)
	assert.Empty(t, answerer.histories[0])
	assert.Len(t, answerer.histories[1], 2)
	assert.Len(t, answerer.histories[2], 4)
	assert.Empty(t, answerer.histories[3])

	assert.Contains(t, out.String(), "re: again")
	assert.Contains(t, out.String(), "model unavailable")
	assert.Contains(t, out.String(), "history cleared")
	assert.NotContains(t, out.String(), "re: ignored")
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	router := filepath.Join(dir, "router.tmpl")
	require.NoError(t, os.WriteFile(router, []byte("Classify: {{.query}}"), 0o600))

	library, err := loadTemplates(config.Settings{RouterTemplateFile: router})
	require.NoError(t, err)

	text, err := library.Render(prompt.TemplateRouter, map[string]any{"query": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Classify: hi", text)

	_, err = loadTemplates(config.Settings{ResponseTemplateFile: filepath.Join(dir, "missing.tmpl")})
	assert.Error(t, err)
}

func TestQueryFlags_InvocationConfig(t *testing.T) {
	flags := queryFlags{queryModel: "ollama/llama3"}
	cfg := flags.invocationConfig()
	assert.Equal(t, map[string]any{config.KeyQueryModel: "ollama/llama3"}, cfg.Configurable)

	resolved, err := config.EnsureAgentConfiguration(cfg, config.AgentConfiguration{QueryModel: "openai/gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "ollama/llama3", resolved.QueryModel)
	assert.Equal(t, "ollama/llama3", resolved.ResponseModel)
}

func TestApp_OpenCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	calls := 0
	a := &app{
		settings: config.Settings{RedisURL: "redis://" + mr.Addr(), Collection: "docs", CacheTTL: time.Minute},
		retriever: rag.RetrieverFunc(func(ctx context.Context, query string) ([]rag.Document, error) {
			calls++
			return []rag.Document{{Content: "cached"}}, nil
		}),
	}
	defer a.Close()
	require.NoError(t, a.openCache(context.Background()))
	require.NotNil(t, a.cache)

	for range 2 {
		docs, err := a.retriever.Retrieve(context.Background(), "q")
		require.NoError(t, err)
		assert.Equal(t, "cached", docs[0].Content)
	}
	assert.Equal(t, 1, calls)
	require.Len(t, mr.Keys(), 1)
	assert.True(t, strings.HasPrefix(mr.Keys()[0], "docs:retrieval:"))

	broken := &app{settings: config.Settings{RedisURL: "not a url"}}
	assert.ErrorContains(t, broken.openCache(context.Background()), "invalid redis_url")
}
