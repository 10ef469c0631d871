package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/history"
	"github.com/cory-johannsen/dicebot/internal/macro"
	"github.com/cory-johannsen/dicebot/internal/observability"
	"github.com/cory-johannsen/dicebot/internal/rollserver"
)

// rollOptions holds the flags of the root command.
type rollOptions struct {
	seed      string
	times     int
	macrosDir string
	markdown  bool
	verbose   bool
	maxLength int
}

func newRootCmd() *cobra.Command {
	opts := &rollOptions{}
	root := &cobra.Command{
		Use:   "roll [formula...]",
		Short: "Roll a dice formula such as 2d6+3 or min(2d20,1d8)+5 Bonus",
		Long: `roll parses, rolls and prints a dice formula.

Arguments are joined with spaces into one formula; an empty formula rolls 1d20.
Start a formula with @name to roll a macro from --macros. Use -- before a
formula that begins with a minus sign.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoll(cmd, opts, strings.Join(args, " "))
		},
	}
	root.Flags().StringVar(&opts.seed, "seed", "", "replay rolls from this seed instead of crypto/rand")
	root.Flags().IntVarP(&opts.times, "times", "n", 1, "roll the formula this many times")
	root.Flags().StringVar(&opts.macrosDir, "macros", "", "directory of macro YAML files")
	root.Flags().BoolVar(&opts.markdown, "markdown", false, "keep **bold** markers in the results")
	root.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log each roll to stderr")
	root.Flags().IntVar(&opts.maxLength, "max-length", 256, "reject formulas longer than this many bytes")

	root.AddCommand(newCanonicalCmd())
	return root
}

func newCanonicalCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "canonical [formula...]",
		Short:        "Print the canonical form of a formula without rolling it",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := dice.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(g.String()))
			return nil
		},
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return observability.NewLogger(config.LoggingConfig{Level: "debug", Format: "console"})
}

func runRoll(cmd *cobra.Command, opts *rollOptions, formula string) error {
	if opts.times < 1 {
		return fmt.Errorf("--times must be >= 1, got %d", opts.times)
	}
	if opts.maxLength < 1 {
		return fmt.Errorf("--max-length must be >= 1, got %d", opts.maxLength)
	}
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	lib, err := macro.LoadDir(opts.macrosDir)
	if err != nil {
		return err
	}

	var src dice.Source = dice.NewCryptoSource()
	if opts.seed != "" {
		src = dice.NewSeededSource(opts.seed)
	}
	svc := rollserver.NewService(
		dice.NewLoggedRoller(src, logger),
		lib,
		history.NewMemoryStore(opts.times),
		nil,
		config.DiceConfig{MaxFormulaLength: opts.maxLength, HistoryLimit: opts.times},
		logger,
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = rollserver.WithOrigin(ctx, observability.OriginCLI)
	out := cmd.OutOrStdout()
	for i := 0; i < opts.times; i++ {
		rec, err := svc.Roll(ctx, "", formula)
		if err != nil {
			return err
		}
		results := rec.Results
		if !opts.markdown {
			results = strings.ReplaceAll(results, "**", "")
		}
		fmt.Fprintf(out, "%s → %s = %d\n", strings.TrimSpace(rec.Canonical), results, rec.Total)
	}
	return nil
}
