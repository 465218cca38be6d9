// Package config loads the orchestration engine's tunable options: step
// budgets, loop-detector thresholds, human-input timeouts, and which
// strategy complex tasks are routed to.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy selects which complex-task strategy the orchestrator routes to.
// Exposed as a switch rather than inferred, per the "MultiStep vs ReAct"
// design decision (see DESIGN.md).
type Strategy string

const (
	StrategyMultiStep Strategy = "multistep"
	StrategyReAct     Strategy = "react"
)

// ExecutionMode selects whether the classifier runs or a caller-supplied
// plan is routed directly into MultiStep.
type ExecutionMode string

const (
	ExecutionModeDynamic    ExecutionMode = "dynamic"
	ExecutionModePredefined ExecutionMode = "predefined"
)

// Config holds every option named in the external-interfaces contract.
type Config struct {
	MaxSimpleSteps          int           `yaml:"max_simple_steps"`
	MaxOuterSteps           int           `yaml:"max_outer_steps"`
	MaxInnerSteps           int           `yaml:"max_inner_steps"`
	MaxReactCycles          int           `yaml:"max_react_cycles"`
	MaxValidationAttempts   int           `yaml:"max_validation_attempts"`
	HumanInputTimeout       time.Duration `yaml:"human_input_timeout"`
	HumanInputCheckInterval time.Duration `yaml:"human_input_check_interval"`
	GlowEnabledTools        []string      `yaml:"glow_enabled_tools"`
	LoopLookback            int           `yaml:"loop_lookback"`
	LoopThreshold           int           `yaml:"loop_threshold"`
	ExecutionMode           ExecutionMode `yaml:"execution_mode"`
	Strategy                Strategy      `yaml:"strategy"`
	MCP                     MCPConfig     `yaml:"mcp"`
}

// MCPConfig selects which MCP servers the mcp_tool's underlying manager
// connects to at startup, letting an operator extend the tool suite (spec
// §2 "mcp") without a core code change.
type MCPConfig struct {
	Enabled bool              `yaml:"enabled"`
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server the manager should launch
// and connect to over stdio.
type MCPServerConfig struct {
	Name     string            `yaml:"name"`
	Command  string            `yaml:"command"`
	Args     []string          `yaml:"args"`
	Env      map[string]string `yaml:"env"`
	Timeout  time.Duration     `yaml:"timeout"`
	Disabled bool              `yaml:"disabled"`
}

// Default returns the documented defaults from the external-interfaces contract.
func Default() *Config {
	return &Config{
		MaxSimpleSteps:          10,
		MaxOuterSteps:           100,
		MaxInnerSteps:           30,
		MaxReactCycles:          8,
		MaxValidationAttempts:   5,
		HumanInputTimeout:       10 * time.Minute,
		HumanInputCheckInterval: 500 * time.Millisecond,
		GlowEnabledTools: []string{
			"navigation_tool", "interaction_tool", "scroll_tool", "search_tool",
			"refresh_browser_state_tool", "tab_operations_tool", "screenshot_tool", "extract_tool",
		},
		LoopLookback:  8,
		LoopThreshold: 4,
		ExecutionMode: ExecutionModeDynamic,
		Strategy:      StrategyMultiStep,
		MCP: MCPConfig{
			Enabled: false,
			Servers: []MCPServerConfig{},
		},
	}
}

// Load reads a YAML options file over the defaults, then applies WAYFARER_*
// environment overrides (mirroring the teacher's env-override-over-yaml
// precedence).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("WAYFARER_MAX_SIMPLE_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSimpleSteps = n
		}
	}
	if v := os.Getenv("WAYFARER_MAX_OUTER_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxOuterSteps = n
		}
	}
	if v := os.Getenv("WAYFARER_MAX_INNER_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxInnerSteps = n
		}
	}
	if v := os.Getenv("WAYFARER_STRATEGY"); v != "" {
		cfg.Strategy = Strategy(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("WAYFARER_EXECUTION_MODE"); v != "" {
		cfg.ExecutionMode = ExecutionMode(strings.ToLower(strings.TrimSpace(v)))
	}
	return cfg
}
