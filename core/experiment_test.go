package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRunConfig(t *testing.T) {
	config, err := NewRunConfig(map[string]interface{}{
		"num_episodes":           10,
		"max_episode_steps":      200,
		"n_warmup_steps":         50,
		"policy_update_interval": 4,
		"reward_threshold":       195.5,
		"max_steps":              1000,
		"show_progress_interval": 5,
		"visualize":              true,
		"model_dir":              "models",
	})
	if err != nil {
		t.Fatalf("NewRunConfig: %v", err)
	}
	want := &RunConfig{
		NumEpisodes:          10,
		MaxEpisodeSteps:      200,
		WarmupSteps:          50,
		PolicyUpdateInterval: intPtr(4),
		RewardThreshold:      floatPtr(195.5),
		MaxSteps:             intPtr(1000),
		ShowProgressInterval: intPtr(5),
		Visualize:            true,
		OutputDir:            DefaultOutputDir,
		ModelDir:             "models",
		MaxToKeep:            DefaultMaxToKeep,
	}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRunConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]interface{}
		option  string
	}{
		{"unknown key", map[string]interface{}{"num_episodes": 1, "max_episode_steps": 1, "num_episode": 3}, "num_episode"},
		{"wrong type", map[string]interface{}{"num_episodes": "ten", "max_episode_steps": 1}, "num_episodes"},
		{"fractional count", map[string]interface{}{"num_episodes": 1.5, "max_episode_steps": 1}, "num_episodes"},
		{"missing episodes", map[string]interface{}{"max_episode_steps": 1}, "num_episodes"},
		{"missing steps", map[string]interface{}{"num_episodes": 1}, "max_episode_steps"},
		{"negative warmup", map[string]interface{}{"num_episodes": 1, "max_episode_steps": 1, "n_warmup_steps": -1}, "n_warmup_steps"},
		{"zero update interval", map[string]interface{}{"num_episodes": 1, "max_episode_steps": 1, "policy_update_interval": 0}, "policy_update_interval"},
		{"zero render interval", map[string]interface{}{"num_episodes": 1, "max_episode_steps": 1, "show_progress_interval": 0}, "show_progress_interval"},
		{"zero step budget", map[string]interface{}{"num_episodes": 1, "max_episode_steps": 1, "max_steps": 0}, "max_steps"},
		{"zero max to keep", map[string]interface{}{"num_episodes": 1, "max_episode_steps": 1, "max_to_keep": 0}, "max_to_keep"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRunConfig(tc.options)
			var configErr *ConfigurationError
			if !errors.As(err, &configErr) {
				t.Fatalf("expected a ConfigurationError, got %v", err)
			}
			if configErr.Option != tc.option {
				t.Errorf("expected option %q, got %q (%v)", tc.option, configErr.Option, err)
			}
		})
	}
}

func TestParseRunConfigMalformed(t *testing.T) {
	_, err := ParseRunConfig(strings.NewReader("{not json"))
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected a ConfigurationError, got %v", err)
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Option: "max_steps", Reason: "must be a positive integer"}
	if got := err.Error(); got != "configuration error: max_steps: must be a positive integer" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestTerminationReasonString(t *testing.T) {
	if StepBudgetExhausted.String() != "step budget exhausted" {
		t.Errorf("unexpected string %q", StepBudgetExhausted.String())
	}
}
