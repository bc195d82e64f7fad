package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zeu5/rl-trainer/analysis"
	"github.com/zeu5/rl-trainer/benchmarks/gridworld"
	"github.com/zeu5/rl-trainer/checkpoint"
	"github.com/zeu5/rl-trainer/core"
	"github.com/zeu5/rl-trainer/metrics"
	"github.com/zeu5/rl-trainer/util"
)

func TrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent on the grid world",
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			defer signal.Stop(sigCh)

			doneCh := make(chan struct{})
			defer close(doneCh)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() {
				select {
				case <-sigCh:
				case <-doneCh:
				}
				cancel()
			}()

			config, err := runConfig(cmd)
			if err != nil {
				return err
			}
			return train(ctx, cmd.OutOrStdout(), config)
		},
	}

	return cmd
}

func runConfig(cmd *cobra.Command) (*core.RunConfig, error) {
	var file io.Reader
	if flags.OptionsFile != "" {
		f, err := os.Open(flags.OptionsFile)
		if err != nil {
			return nil, fmt.Errorf("error opening options file: %w", err)
		}
		defer f.Close()
		file = f
	}
	options, err := flags.RunOptions(file, changed(cmd.Flags()))
	if err != nil {
		return nil, err
	}
	return core.NewRunConfig(options)
}

func train(ctx context.Context, out io.Writer, config *core.RunConfig) error {
	runID := uuid.New().String()
	runDir := filepath.Join(config.OutputDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}
	if err := flags.Record(runDir, config); err != nil {
		return err
	}
	if flags.Debug {
		log.Printf("run %s: %+v", runID, *config)
	}

	setup, err := gridworld.Prepare(flags)
	if err != nil {
		return err
	}
	setup.Env.WithOutput(out, flags.Colors)

	dest, err := metrics.Open(runDir)
	if err != nil {
		return err
	}
	defer dest.Close()

	opts := setup.Options()
	if s, ok := setup.Agent.(core.Snapshotter); ok {
		m, err := checkpoint.NewManager(runDir, config.MaxToKeep, s)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithCheckpointStore(m))
	}
	if config.Visualize {
		tv, err := analysis.NewTraceVisualizer(setup.Env, runDir, flags.TraceFrom)
		if err != nil {
			return err
		}
		defer tv.Flush()
		opts = append(opts, core.WithVisualizer(tv))
	}

	printer := util.NewProgressPrinter(out, config.NumEpisodes, time.Second, flags.Colors)
	opts = append(opts, core.WithProgressReporter(printer))
	printer.Start(ctx)
	defer printer.Stop()

	trainer, err := core.NewTrainer(config, setup.Agent, setup.Env, dest, opts...)
	if err != nil {
		return err
	}
	result, err := trainer.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("run %s finished (%s) after %d episodes and %d steps, results in %s",
		runID, result.Reason, result.Episodes, result.TotalSteps, runDir)
	return nil
}
