package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/model"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/retrieval"
)

func newIngestCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest file...",
		Short: "Index files into the configured retriever backend",
		Long: "Index text, Markdown, HTML and PDF files. With the memory backend the index " +
			"only lives for this process, so use ask --docs or chat --docs instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.Ingest(ctx, args...)
			if err != nil {
				return err
			}

			failed := make([]string, 0, len(state.Failed))
			for path := range state.Failed {
				failed = append(failed, path)
			}
			sort.Strings(failed)
			for _, path := range failed {
				fmt.Fprintln(c.out, styles.Error.Render(fmt.Sprintf("skipped %s: %v", path, state.Failed[path])))
			}
			fmt.Fprintln(c.out, styles.Title.Render(fmt.Sprintf("indexed %d chunk(s) from %d document(s)", len(state.Chunks), len(state.Documents))))
			return nil
		},
	}
}

var errNoRetriever = errors.New("no retriever configured")

func newGraphCommand(c *cli) *cobra.Command {
	var format, direction string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the workflow graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Clients are created lazily, so no provider is contacted here.
			w, err := retrieval.New(
				model.NewProviderLoader(model.ProviderOptions{}),
				rag.RetrieverFunc(func(ctx context.Context, query string) ([]rag.Document, error) {
					return nil, errNoRetriever
				}),
			)
			if err != nil {
				return err
			}

			exporter := w.Exporter()
			switch format {
			case "mermaid":
				fmt.Fprint(c.out, exporter.DrawMermaidWithOptions(graph.MermaidOptions{Direction: direction}))
			case "dot":
				fmt.Fprint(c.out, exporter.DrawDOT())
			case "ascii":
				fmt.Fprint(c.out, exporter.DrawASCII())
			default:
				return fmt.Errorf("unknown format %q, want mermaid, dot or ascii", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "output format: mermaid, dot or ascii")
	cmd.Flags().StringVar(&direction, "direction", "TD", "mermaid flowchart direction")
	return cmd
}
