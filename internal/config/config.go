// Package config loads and saves run configurations as YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mdsim/internal/integrators"
)

// Defaults for a run.
const (
	DefaultDt               = 0.001 // ps
	DefaultSteps            = 1000
	DefaultReportEvery      = 10
	DefaultTemperature      = 300.0 // K
	DefaultFriction         = 1.0   // 1/ps
	DefaultDrudeTemperature = 1.0   // K
	DefaultDrudeFriction    = 10.0  // 1/ps
	DefaultTolerance        = 1e-8
	DefaultParticles        = 64
)

// SchedulePair is one (force group, substeps) level of an MTS schedule.
type SchedulePair struct {
	Group    int `yaml:"group"`
	Substeps int `yaml:"substeps"`
}

// ChainConfig holds Nose-Hoover chain parameters.
type ChainConfig struct {
	Length        int `yaml:"length"`
	Loops         int `yaml:"loops"`
	YoshidaSuzuki int `yaml:"yoshida_suzuki"`
}

// Config describes one simulation run.
type Config struct {
	System     string `yaml:"system"`
	Integrator string `yaml:"integrator"`

	Dt          float64 `yaml:"dt"`
	Steps       int     `yaml:"steps"`
	ReportEvery int     `yaml:"report_every"`
	Seed        int64   `yaml:"seed"`
	Particles   int     `yaml:"particles"`

	Temperature      float64 `yaml:"temperature"`
	Friction         float64 `yaml:"friction"`
	DrudeTemperature float64 `yaml:"drude_temperature"`
	DrudeFriction    float64 `yaml:"drude_friction"`

	ConstraintTolerance float64        `yaml:"constraint_tolerance"`
	Schedule            []SchedulePair `yaml:"schedule"`
	Chain               ChainConfig    `yaml:"chain"`
}

// DefaultConfig returns a runnable configuration.
func DefaultConfig() *Config {
	return &Config{
		System:              "argon",
		Integrator:          "mts",
		Dt:                  DefaultDt,
		Steps:               DefaultSteps,
		ReportEvery:         DefaultReportEvery,
		Seed:                1,
		Particles:           DefaultParticles,
		Temperature:         DefaultTemperature,
		Friction:            DefaultFriction,
		DrudeTemperature:    DefaultDrudeTemperature,
		DrudeFriction:       DefaultDrudeFriction,
		ConstraintTolerance: DefaultTolerance,
		Schedule:            []SchedulePair{{Group: 0, Substeps: 1}},
		Chain: ChainConfig{
			Length:        integrators.DefaultChainLength,
			Loops:         integrators.DefaultChainLoops,
			YoshidaSuzuki: integrators.DefaultYoshidaSuzuki,
		},
	}
}

// Load reads a YAML configuration, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildSchedule converts the configured schedule to the integrator
// type.
func (c *Config) BuildSchedule() integrators.Schedule {
	s := make(integrators.Schedule, len(c.Schedule))
	for i, p := range c.Schedule {
		s[i] = integrators.GroupSubsteps{Group: p.Group, Substeps: p.Substeps}
	}
	return s
}

// ParseSchedule parses a compact schedule flag of the form
// "group:substeps,group:substeps", e.g. "2:1,1:2,0:8".
func ParseSchedule(s string) ([]SchedulePair, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("config: empty schedule")
	}
	var pairs []SchedulePair
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("config: bad schedule entry %q (want group:substeps)", part)
		}
		group, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("config: bad group in %q: %v", part, err)
		}
		substeps, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("config: bad substeps in %q: %v", part, err)
		}
		pairs = append(pairs, SchedulePair{Group: group, Substeps: substeps})
	}
	return pairs, nil
}
