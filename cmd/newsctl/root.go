package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:          "newsctl",
		Short:        "Manage the news category taxonomy",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case outputText, outputJSON:
				return nil
			default:
				return fmt.Errorf("--output must be %q or %q", outputText, outputJSON)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file (default: ./config.toml or /etc/newsdesk/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format override (console, json)")
	flags.StringVar(&opts.eventLog, "event-log", "", "append committed domain events as JSON lines to this file")
	flags.StringVarP(&opts.output, "output", "o", outputText, "output format (text, json)")

	root.AddCommand(
		newMigrateCommand(opts),
		newCategoryCommand(opts),
		newNewsCommand(opts),
	)
	return root
}

// runWithApp wires an app for the command, runs fn and tears the app down
func runWithApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	ctx, a, err := newApp(cmd.Context(), opts, cmd.CommandPath())
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

// render writes v as indented JSON, or calls text for the text format
func render(w io.Writer, opts *globalOptions, v any, text func(w io.Writer)) error {
	if opts.output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", arg)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
