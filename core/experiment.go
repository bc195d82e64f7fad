package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultOutputDir = "./Experiments/"
	DefaultMaxToKeep = 5
)

// RunConfig holds the options of a training run. Optional options are
// pointers so that an explicit zero can be told apart from an absent value.
type RunConfig struct {
	NumEpisodes     int `json:"num_episodes"`
	MaxEpisodeSteps int `json:"max_episode_steps"`
	WarmupSteps     int `json:"n_warmup_steps"`
	// Falls back to Agent.UpdateInterval when nil
	PolicyUpdateInterval *int     `json:"policy_update_interval,omitempty"`
	RewardThreshold      *float64 `json:"reward_threshold,omitempty"`
	MaxSteps             *int     `json:"max_steps,omitempty"`
	ShowProgressInterval *int     `json:"show_progress_interval,omitempty"`
	Visualize            bool     `json:"visualize"`

	OutputDir string `json:"output_dir"`
	// ModelDir is the resume directory read once at startup
	ModelDir  string `json:"model_dir,omitempty"`
	MaxToKeep int    `json:"max_to_keep"`
	// Episodes between periodic checkpoints, 0 saves only at termination
	CheckpointInterval int `json:"checkpoint_interval"`
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		OutputDir: DefaultOutputDir,
		MaxToKeep: DefaultMaxToKeep,
	}
}

// NewRunConfig builds a validated RunConfig from a map of named options.
// Unknown option names and mistyped values are rejected.
func NewRunConfig(options map[string]interface{}) (*RunConfig, error) {
	bs, err := json.Marshal(options)
	if err != nil {
		return nil, &ConfigurationError{Reason: "options are not serializable: " + err.Error()}
	}
	return ParseRunConfig(bytes.NewReader(bs))
}

// ParseRunConfig decodes a JSON object of options on top of the defaults
// and validates the result.
func ParseRunConfig(r io.Reader) (*RunConfig, error) {
	config := DefaultRunConfig()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		return nil, decodeError(err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ConfigurationError{
			Option: typeErr.Field,
			Reason: "expected a value of type " + typeErr.Type.String(),
		}
	}
	if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
		name := strings.TrimPrefix(msg, "json: unknown field ")
		if unquoted, uErr := strconv.Unquote(name); uErr == nil {
			name = unquoted
		}
		return &ConfigurationError{Option: name, Reason: "unknown option"}
	}
	return &ConfigurationError{Reason: "malformed options: " + err.Error()}
}

func (c *RunConfig) Validate() error {
	if c.NumEpisodes <= 0 {
		return &ConfigurationError{Option: "num_episodes", Reason: "must be a positive integer"}
	}
	if c.MaxEpisodeSteps <= 0 {
		return &ConfigurationError{Option: "max_episode_steps", Reason: "must be a positive integer"}
	}
	if c.WarmupSteps < 0 {
		return &ConfigurationError{Option: "n_warmup_steps", Reason: "must not be negative"}
	}
	if c.PolicyUpdateInterval != nil && *c.PolicyUpdateInterval <= 0 {
		return &ConfigurationError{Option: "policy_update_interval", Reason: "must be a positive integer"}
	}
	if c.RewardThreshold != nil && math.IsNaN(*c.RewardThreshold) {
		return &ConfigurationError{Option: "reward_threshold", Reason: "must be a number"}
	}
	if c.MaxSteps != nil && *c.MaxSteps <= 0 {
		return &ConfigurationError{Option: "max_steps", Reason: "must be a positive integer"}
	}
	if c.ShowProgressInterval != nil && *c.ShowProgressInterval <= 0 {
		return &ConfigurationError{Option: "show_progress_interval", Reason: "is used as a modulus and must be positive"}
	}
	if c.OutputDir == "" {
		return &ConfigurationError{Option: "output_dir", Reason: "must not be empty"}
	}
	if c.MaxToKeep <= 0 {
		return &ConfigurationError{Option: "max_to_keep", Reason: "must be a positive integer"}
	}
	if c.CheckpointInterval < 0 {
		return &ConfigurationError{Option: "checkpoint_interval", Reason: "must not be negative"}
	}
	return nil
}

// Copy returns a deep copy so that callers cannot mutate a running config
func (c *RunConfig) Copy() *RunConfig {
	out := *c
	if c.PolicyUpdateInterval != nil {
		v := *c.PolicyUpdateInterval
		out.PolicyUpdateInterval = &v
	}
	if c.RewardThreshold != nil {
		v := *c.RewardThreshold
		out.RewardThreshold = &v
	}
	if c.MaxSteps != nil {
		v := *c.MaxSteps
		out.MaxSteps = &v
	}
	if c.ShowProgressInterval != nil {
		v := *c.ShowProgressInterval
		out.ShowProgressInterval = &v
	}
	return &out
}

type TerminationReason int

const (
	EpisodesExhausted TerminationReason = iota
	RewardThresholdReached
	StepBudgetExhausted
)

func (r TerminationReason) String() string {
	switch r {
	case EpisodesExhausted:
		return "episodes exhausted"
	case RewardThresholdReached:
		return "reward threshold reached"
	case StepBudgetExhausted:
		return "step budget exhausted"
	default:
		return "unknown"
	}
}

type RunResult struct {
	Reason            TerminationReason
	TotalSteps        int
	RunningReward     float64
	Episodes          int
	EpisodesCompleted int
	// Restored is true when the agent was loaded from the resume directory
	Restored bool
	// Checkpoint is the path of the snapshot saved at termination, if any
	Checkpoint string
}
