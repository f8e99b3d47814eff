// SPDX-License-Identifier: Apache-2.0
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"constfold/internal/config"
	diag "constfold/internal/errors"
	"constfold/internal/ir"
	"constfold/repl"
)

// errReported means the failure has already been printed
var errReported = errors.New("failed")

type options struct {
	configFile   string
	verify       bool
	noColor      bool
	verbosity    int
	annotateDead bool
	passes       []string
	flags        *pflag.FlagSet
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "constfold [OPTIONS] FILE",
		Short:         "Forward constant stores to loads and fold constant multiplications",
		Long:          "Reads an IR file (or - for stdin), runs the configured passes and prints the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.flags = cmd.Flags()
			return run(cmd, opts, args[0])
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Configuration file (default "+config.DefaultPath+" if present)")
	flags.BoolVar(&opts.verify, "verify", false, "Check IR invariants after the passes run")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.IntVarP(&opts.verbosity, "verbosity", "v", 0, "Log verbosity")
	flags.BoolVar(&opts.annotateDead, "annotate-dead", false, "Mark instructions whose result is no longer used")
	flags.StringSliceVar(&opts.passes, "passes", nil, fmt.Sprintf("Passes to run, in order %v", ir.PassNames()))

	cmd.AddCommand(newReplCommand(&opts))
	return cmd
}

func newReplCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Fold functions typed on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.flags = cmd.Flags()
			cfg, err := loadConfig(*opts)
			if err != nil {
				return err
			}
			if !cfg.Color {
				color.NoColor = true
			}
			commonlog.Configure(cfg.Verbosity, nil)
			return repl.Start(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.PipelinePasses())
		},
	}
}

// loadConfig merges the configuration file, environment and explicit flags
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	if opts.flags.Changed("passes") {
		cfg.Passes = opts.passes
	}
	if opts.flags.Changed("verify") {
		cfg.Verify = opts.verify
	}
	if opts.flags.Changed("verbosity") {
		cfg.Verbosity = opts.verbosity
	}
	if opts.flags.Changed("annotate-dead") {
		cfg.AnnotateDead = opts.annotateDead
	}
	if opts.noColor {
		cfg.Color = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts options, path string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if !cfg.Color {
		color.NoColor = true
	}
	commonlog.Configure(cfg.Verbosity, nil)
	log := commonlog.GetLogger("constfold.cli")
	log.Debugf("passes: %v", cfg.PipelinePasses())

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	red := color.New(color.FgRed)
	startTime := time.Now()

	source, err := readSource(cmd, path)
	if err != nil {
		return err
	}
	name := path
	if path == "-" {
		name = "<stdin>"
	}

	program, diagnostics := ir.BuildSource(name, source)
	reporter := diag.NewErrorReporter(name, source)
	fmt.Fprint(stderr, reporter.FormatAll(diagnostics))
	if program == nil {
		red.Fprintf(stderr, "Compilation failed with %s after %s\n", diag.Summary(diagnostics), formatDuration(time.Since(startTime)))
		return errReported
	}

	pipeline, err := ir.NewPipelineFromNames(cfg.PipelinePasses())
	if err != nil {
		return err
	}
	pipeline.Run(program)
	if err := pipeline.Err(); err != nil {
		red.Fprintf(stderr, "Verification failed:\n%v\n", err)
		return errReported
	}

	log.Infof("%s: %d rewrites", name, len(pipeline.Rewrites()))
	fmt.Fprint(stdout, ir.PrintWithOptions(program, ir.PrintOptions{AnnotateDead: cfg.AnnotateDead}))

	forwarded, folded := 0, 0
	for _, rewrite := range pipeline.Rewrites() {
		switch rewrite.Kind {
		case ir.RewriteForwardLoad:
			forwarded++
		case ir.RewriteFoldMultiply:
			folded++
		}
	}
	color.New(color.FgGreen).Fprintf(stderr, "%s: %d loads forwarded, %d multiplications folded in %s\n",
		name, forwarded, folded, formatDuration(time.Since(startTime)))
	return nil
}

func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
