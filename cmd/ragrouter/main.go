// Command ragrouter answers questions about indexed documents. Each query is
// routed either to a direct answer or through retrieval and generation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smallnest/ragrouter/config"
	"github.com/smallnest/ragrouter/log"
)

// cli carries the persistent flags and the settings loaded from them.
type cli struct {
	configFile  string
	envFile     string
	logLevel    string
	metricsAddr string
	trace       bool

	settings config.Settings
	out      io.Writer
	in       io.Reader
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "ragrouter",
		Short:         "Answer questions about your documents, retrieving only when needed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(config.LoadOptions{
				EnvFile:    c.envFile,
				ConfigFile: c.configFile,
			})
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				settings.LogLevel = c.logLevel
			}
			level, err := settings.Level()
			if err != nil {
				return err
			}
			log.SetDefaultLogger(log.NewDefaultLogger(level))
			c.settings = settings
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default ./ragrouter.yaml or $HOME/.config/ragrouter/ragrouter.yaml)")
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading settings")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error or none")
	flags.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVar(&c.trace, "trace", false, "print node timings after each answer")

	root.AddCommand(
		newAskCommand(c),
		newChatCommand(c),
		newIngestCommand(c),
		newGraphCommand(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout, in: os.Stdin}
	if err := newRootCommand(c).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, styles.Error.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
