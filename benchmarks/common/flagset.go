package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/mattn/go-isatty"

	"github.com/zeu5/rl-trainer/core"
	"github.com/zeu5/rl-trainer/util"
)

type Flags struct {
	SavePath    string
	OptionsFile string
	Resume      string
	RunFlags
	GridFlags
	AgentFlags
	Debug  bool
	Colors bool
}

type RunFlags struct {
	Episodes             int
	MaxEpisodeSteps      int
	WarmupSteps          int
	UpdateInterval       int
	RewardThreshold      float64
	MaxSteps             int
	ShowProgressInterval int
	Visualize            bool
	MaxToKeep            int
	CheckpointInterval   int
	// TraceFrom is the first episode recorded by the trace visualizer
	TraceFrom int
}

type GridFlags struct {
	Rows         int
	Cols         int
	GridMaxSteps int
	StepPenalty  float64
	Seed         uint64
}

type AgentFlags struct {
	Agent          string
	Buffer         string
	BufferCapacity int
	BatchSize      int
	PriorityAlpha  float64
	Alpha          float64
	Discount       float64
	Epsilon        float64
	Temperature    float64
	UCBConstant    float64
}

func DefaultFlags() *Flags {
	return &Flags{
		SavePath: core.DefaultOutputDir,
		RunFlags: RunFlags{
			Episodes:           500,
			MaxEpisodeSteps:    100,
			WarmupSteps:        0,
			UpdateInterval:     1,
			MaxToKeep:          core.DefaultMaxToKeep,
			CheckpointInterval: 0,
		},
		GridFlags: GridFlags{
			Rows:         5,
			Cols:         5,
			GridMaxSteps: 100,
			StepPenalty:  -0.01,
		},
		AgentFlags: AgentFlags{
			Agent:          "qlearning",
			Buffer:         "uniform",
			BufferCapacity: 10000,
			BatchSize:      32,
			PriorityAlpha:  0.6,
			Alpha:          0.1,
			Discount:       0.95,
			Epsilon:        0.1,
			Temperature:    1,
			UCBConstant:    0.01,
		},
		Debug:  false,
		Colors: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// LoadEnv replaces defaults with the RLTRAIN_* environment variables that are
// set, typically from a .env file.
func (f *Flags) LoadEnv() error {
	if v, ok := os.LookupEnv("RLTRAIN_SAVE_PATH"); ok {
		f.SavePath = v
	}
	if v, ok := os.LookupEnv("RLTRAIN_OPTIONS"); ok {
		f.OptionsFile = v
	}
	if v, ok := os.LookupEnv("RLTRAIN_AGENT"); ok {
		f.Agent = v
	}
	if v, ok := os.LookupEnv("RLTRAIN_BUFFER"); ok {
		f.Buffer = v
	}
	if v, ok := os.LookupEnv("RLTRAIN_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RLTRAIN_SEED: %w", err)
		}
		f.Seed = seed
	}
	if v, ok := os.LookupEnv("RLTRAIN_COLORS"); ok {
		colors, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RLTRAIN_COLORS: %w", err)
		}
		f.Colors = colors
	}
	return nil
}

// optionFlags maps command line flags to run options
var optionFlags = map[string]string{
	"episodes":               "num_episodes",
	"max-episode-steps":      "max_episode_steps",
	"warmup-steps":           "n_warmup_steps",
	"update-interval":        "policy_update_interval",
	"reward-threshold":       "reward_threshold",
	"max-steps":              "max_steps",
	"show-progress-interval": "show_progress_interval",
	"visualize":              "visualize",
	"save-path":              "output_dir",
	"resume":                 "model_dir",
	"max-to-keep":            "max_to_keep",
	"checkpoint-interval":    "checkpoint_interval",
}

func (f *Flags) option(flag string) interface{} {
	switch flag {
	case "episodes":
		return f.Episodes
	case "max-episode-steps":
		return f.MaxEpisodeSteps
	case "warmup-steps":
		return f.WarmupSteps
	case "update-interval":
		return f.UpdateInterval
	case "reward-threshold":
		return f.RewardThreshold
	case "max-steps":
		return f.MaxSteps
	case "show-progress-interval":
		return f.ShowProgressInterval
	case "visualize":
		return f.Visualize
	case "save-path":
		return f.SavePath
	case "resume":
		return f.Resume
	case "max-to-keep":
		return f.MaxToKeep
	case "checkpoint-interval":
		return f.CheckpointInterval
	}
	return nil
}

// RunOptions merges the run options. Flag defaults come first, then the
// options read from file (may be nil) and then the flags set explicitly, as
// reported by changed.
func (f *Flags) RunOptions(file io.Reader, changed func(string) bool) (map[string]interface{}, error) {
	options := map[string]interface{}{
		"num_episodes":      f.Episodes,
		"max_episode_steps": f.MaxEpisodeSteps,
		"output_dir":        f.SavePath,
		"max_to_keep":       f.MaxToKeep,
	}
	if file != nil {
		fromFile := make(map[string]interface{})
		dec := json.NewDecoder(file)
		dec.UseNumber()
		if err := dec.Decode(&fromFile); err != nil {
			return nil, fmt.Errorf("error reading options file: %w", err)
		}
		for k, v := range fromFile {
			options[k] = v
		}
	}
	for flag, name := range optionFlags {
		if changed(flag) {
			options[name] = f.option(flag)
		}
	}
	return options, nil
}

// Record saves the flags and the resolved run configuration to config.json
func (f *Flags) Record(dir string, run *core.RunConfig) error {
	return util.SaveJson(path.Join(dir, "config.json"), map[string]interface{}{
		"flags": f,
		"run":   run,
	})
}
