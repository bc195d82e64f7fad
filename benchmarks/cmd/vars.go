package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zeu5/rl-trainer/benchmarks/common"
)

var flags *common.Flags = common.DefaultFlags()

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&flags.SavePath, "save-path", flags.SavePath, "Directory holding the run directories")
	cmd.PersistentFlags().StringVar(&flags.OptionsFile, "options", flags.OptionsFile, "JSON file with the run options")
	cmd.PersistentFlags().StringVar(&flags.Resume, "resume", flags.Resume, "Run directory to restore the agent from")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", flags.Debug, "Log the resolved configuration")
	cmd.PersistentFlags().BoolVar(&flags.Colors, "colors", flags.Colors, "Colored terminal output")

	cmd.PersistentFlags().IntVar(&flags.Episodes, "episodes", flags.Episodes, "Number of episodes")
	cmd.PersistentFlags().IntVar(&flags.MaxEpisodeSteps, "max-episode-steps", flags.MaxEpisodeSteps, "Maximum steps per episode")
	cmd.PersistentFlags().IntVar(&flags.WarmupSteps, "warmup-steps", flags.WarmupSteps, "Number of initial steps with random actions")
	cmd.PersistentFlags().IntVar(&flags.UpdateInterval, "update-interval", flags.UpdateInterval, "Steps between policy updates")
	cmd.PersistentFlags().Float64Var(&flags.RewardThreshold, "reward-threshold", flags.RewardThreshold, "Running reward at which the run stops")
	cmd.PersistentFlags().IntVar(&flags.MaxSteps, "max-steps", flags.MaxSteps, "Total step budget")
	cmd.PersistentFlags().IntVar(&flags.ShowProgressInterval, "show-progress-interval", flags.ShowProgressInterval, "Render every nth episode")
	cmd.PersistentFlags().BoolVar(&flags.Visualize, "visualize", flags.Visualize, "Record episode traces")
	cmd.PersistentFlags().IntVar(&flags.TraceFrom, "trace-from", flags.TraceFrom, "First episode to record a trace for")
	cmd.PersistentFlags().IntVar(&flags.MaxToKeep, "max-to-keep", flags.MaxToKeep, "Number of checkpoints to keep")
	cmd.PersistentFlags().IntVar(&flags.CheckpointInterval, "checkpoint-interval", flags.CheckpointInterval, "Episodes between checkpoints")

	cmd.PersistentFlags().IntVar(&flags.Rows, "rows", flags.Rows, "Grid rows")
	cmd.PersistentFlags().IntVar(&flags.Cols, "cols", flags.Cols, "Grid columns")
	cmd.PersistentFlags().IntVar(&flags.GridMaxSteps, "grid-max-steps", flags.GridMaxSteps, "Steps after which the grid truncates an episode")
	cmd.PersistentFlags().Float64Var(&flags.StepPenalty, "step-penalty", flags.StepPenalty, "Reward of a step that does not reach the goal")
	cmd.PersistentFlags().Uint64Var(&flags.Seed, "seed", flags.Seed, "Random seed, 0 seeds from the clock")

	cmd.PersistentFlags().StringVar(&flags.Agent, "agent", flags.Agent, "Agent: qlearning, ucb, softmax or random")
	cmd.PersistentFlags().StringVar(&flags.Buffer, "buffer", flags.Buffer, "Experience buffer: uniform, prioritized or none")
	cmd.PersistentFlags().IntVar(&flags.BufferCapacity, "buffer-capacity", flags.BufferCapacity, "Experience buffer capacity")
	cmd.PersistentFlags().IntVar(&flags.BatchSize, "batch-size", flags.BatchSize, "Transitions per update")
	cmd.PersistentFlags().Float64Var(&flags.PriorityAlpha, "priority-alpha", flags.PriorityAlpha, "Prioritized replay exponent")
	cmd.PersistentFlags().Float64Var(&flags.Alpha, "alpha", flags.Alpha, "Learning rate")
	cmd.PersistentFlags().Float64Var(&flags.Discount, "discount", flags.Discount, "Discount factor")
	cmd.PersistentFlags().Float64Var(&flags.Epsilon, "epsilon", flags.Epsilon, "Exploration rate")
	cmd.PersistentFlags().Float64Var(&flags.Temperature, "temperature", flags.Temperature, "Softmax temperature")
	cmd.PersistentFlags().Float64Var(&flags.UCBConstant, "ucb-constant", flags.UCBConstant, "Scale of the ucb exploration bonus")
}

func changed(fs *pflag.FlagSet) func(string) bool {
	return func(name string) bool {
		return fs.Changed(name)
	}
}
