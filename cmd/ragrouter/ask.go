package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/ragrouter/config"
	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/message"
	"github.com/smallnest/ragrouter/retrieval"
)

// queryFlags are shared by ask and chat.
type queryFlags struct {
	docs          []string
	queryModel    string
	responseModel string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.docs, "docs", nil, "files to index before answering")
	cmd.Flags().StringVar(&f.queryModel, "query-model", "", "model routing the query, as provider/model")
	cmd.Flags().StringVar(&f.responseModel, "response-model", "", "model writing the answer, as provider/model")
}

// invocationConfig passes the per-invocation model overrides to the
// workflow.
func (f *queryFlags) invocationConfig() *graph.Config {
	configurable := map[string]any{}
	if f.queryModel != "" {
		configurable[config.KeyQueryModel] = f.queryModel
	}
	if f.responseModel != "" {
		configurable[config.KeyResponseModel] = f.responseModel
	}
	return &graph.Config{Configurable: configurable, Tags: []string{"cli"}}
}

// prepare builds the app and indexes --docs.
func (f *queryFlags) prepare(ctx context.Context, c *cli) (*app, error) {
	a, err := newApp(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(f.docs) > 0 {
		if _, err := a.Ingest(ctx, f.docs...); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func newAskCommand(c *cli) *cobra.Command {
	var flags queryFlags
	var htmlPath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := flags.prepare(ctx, c)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.workflow.Invoke(ctx, strings.Join(args, " "), nil, flags.invocationConfig())
			if err != nil {
				return err
			}

			if err := printAnswer(c.out, state); err != nil {
				return err
			}
			printTrace(c.out, a.tracer)

			if htmlPath != "" {
				return writeHTMLFile(htmlPath, state)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&htmlPath, "html", "", "also write the answer as an HTML page to this file")
	return cmd
}

func newChatCommand(c *cli) *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long:  "Start an interactive conversation. The history is kept for the session only. Type /reset to forget it and /exit to quit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := flags.prepare(ctx, c)
			if err != nil {
				return err
			}
			defer a.Close()
			return chatLoop(ctx, c, a.workflow, a.tracer, flags.invocationConfig())
		},
	}
	flags.register(cmd)
	return cmd
}

// answerer is the part of the workflow the chat loop needs.
type answerer interface {
	Invoke(ctx context.Context, query string, history []message.Turn, cfg *graph.Config) (retrieval.State, error)
}

func chatLoop(ctx context.Context, c *cli, w answerer, tracer *graph.Tracer, cfg *graph.Config) error {
	var history []message.Turn
	scanner := bufio.NewScanner(c.in)

	fmt.Fprintln(c.out, styles.Title.Render("ragrouter chat")+styles.Dim.Render("  /reset clears the history, /exit quits"))
	for {
		fmt.Fprint(c.out, styles.Title.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			history = nil
			fmt.Fprintln(c.out, styles.Dim.Render("history cleared"))
			continue
		}

		state, err := w.Invoke(ctx, line, history, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(c.out, styles.Error.Render(err.Error()))
			continue
		}
		history = state.Messages

		if err := printAnswer(c.out, state); err != nil {
			return err
		}
		printTrace(c.out, tracer)
	}
}
