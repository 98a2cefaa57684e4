package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jvasco323/TRM/internal/climate"
	"github.com/jvasco323/TRM/internal/properties"
	"gopkg.in/yaml.v3"
)

// KnownModels lists every learner the training stage can run, in the
// order their grids are reported.
var KnownModels = []string{"glm", "step", "gam", "rf", "bayes", "nnet"}

type Config struct {
	Studies []Study `yaml:"studies"`
}

// Study describes one modelling exercise: a survey table, the rasters
// the survey is overlaid on, and how the ensemble is trained on top.
type Study struct {
	Name       string        `yaml:"name"`
	Label      string        `yaml:"label"`
	Boundary   string        `yaml:"boundary"`
	Survey     SurveySpec    `yaml:"survey"`
	Covariates []Covariate   `yaml:"covariates"`
	Climate    ClimateSpec   `yaml:"climate"`
	Split      SplitSpec     `yaml:"split"`
	Training   TrainingSpec  `yaml:"training"`
	Threshold  ThresholdSpec `yaml:"threshold"`
}

type SurveySpec struct {
	Path      string  `yaml:"path"`
	Response  string  `yaml:"response"`
	Latitude  string  `yaml:"latitude"`
	Longitude string  `yaml:"longitude"`
	ID        string  `yaml:"id"`
	Group     string  `yaml:"group"`
	Class     string  `yaml:"class"`
	Quantile  float64 `yaml:"positive_quantile"`
}

type Covariate struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Band   int    `yaml:"band"`
	Remote bool   `yaml:"remote"`
}

type ClimateSpec struct {
	Enabled bool     `yaml:"enabled"`
	Start   string   `yaml:"start"`
	End     string   `yaml:"end"`
	Step    float64  `yaml:"step"`
	Metrics []string `yaml:"metrics"`
}

type SplitSpec struct {
	Ratio float64 `yaml:"ratio"`
	Seed  int64   `yaml:"seed"`
}

type TrainingSpec struct {
	Folds  int      `yaml:"folds"`
	Seed   int64    `yaml:"seed"`
	Models []string `yaml:"models"`
}

type ThresholdSpec struct {
	Method string `yaml:"method"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	if len(cfg.Studies) == 0 {
		return nil, fmt.Errorf("config %s defines no studies", path)
	}
	seen := map[string]bool{}
	for i := range cfg.Studies {
		s := &cfg.Studies[i]
		s.applyDefaults()
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("study %q: %w", s.Name, err)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate study name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return cfg, nil
}

func (c *Config) Study(name string) (*Study, error) {
	for i := range c.Studies {
		if c.Studies[i].Name == name {
			return &c.Studies[i], nil
		}
	}
	return nil, fmt.Errorf("study %q not found, available: %s", name, strings.Join(c.Names(), ", "))
}

func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Studies))
	for i := range c.Studies {
		names = append(names, c.Studies[i].Name)
	}
	return names
}

func (s *Study) applyDefaults() {
	if s.Label == "" {
		s.Label = s.Name
	}
	if s.Survey.Quantile == 0 {
		s.Survey.Quantile = 0.5
	}
	if s.Split.Ratio == 0 {
		s.Split.Ratio = 0.7
	}
	if s.Split.Seed == 0 {
		s.Split.Seed = 1
	}
	if s.Training.Folds == 0 {
		s.Training.Folds = 10
	}
	if s.Training.Seed == 0 {
		s.Training.Seed = s.Split.Seed
	}
	if len(s.Training.Models) == 0 {
		s.Training.Models = append([]string{}, KnownModels...)
	}
	if s.Threshold.Method == "" {
		s.Threshold.Method = "youden"
	}
	if s.Climate.Step == 0 {
		s.Climate.Step = 0.25
	}
	if s.Climate.Enabled && len(s.Climate.Metrics) == 0 {
		s.Climate.Metrics = append([]string{}, climate.Metrics...)
	}
}

func (s *Study) validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if s.Survey.Path == "" {
		return fmt.Errorf("missing survey.path")
	}
	if s.Survey.Response == "" {
		return fmt.Errorf("missing survey.response")
	}
	if s.Survey.Latitude == "" || s.Survey.Longitude == "" {
		return fmt.Errorf("missing survey coordinate columns")
	}
	if s.Survey.Quantile <= 0 || s.Survey.Quantile >= 1 {
		return fmt.Errorf("survey.positive_quantile %v outside (0,1)", s.Survey.Quantile)
	}
	if len(s.Covariates) == 0 && !s.Climate.Enabled {
		return fmt.Errorf("no covariates and climate disabled, nothing to model on")
	}
	names := map[string]bool{}
	for _, c := range s.Covariates {
		if c.Name == "" || c.Path == "" {
			return fmt.Errorf("covariate needs both name and path")
		}
		if names[c.Name] {
			return fmt.Errorf("duplicate covariate %q", c.Name)
		}
		names[c.Name] = true
	}
	if s.Climate.Enabled {
		if s.Climate.Start == "" || s.Climate.End == "" {
			return fmt.Errorf("climate needs both start and end dates")
		}
		for _, m := range s.Climate.Metrics {
			if !knownMetric(m) {
				return fmt.Errorf("unknown climate metric %q, available: %s", m, strings.Join(climate.Metrics, ", "))
			}
		}
	}
	if s.Split.Ratio <= 0 || s.Split.Ratio >= 1 {
		return fmt.Errorf("split.ratio %v outside (0,1)", s.Split.Ratio)
	}
	if s.Training.Folds < 2 {
		return fmt.Errorf("training.folds %d below 2", s.Training.Folds)
	}
	for _, m := range s.Training.Models {
		if !knownModel(m) {
			return fmt.Errorf("unknown model %q, available: %s", m, strings.Join(KnownModels, ", "))
		}
	}
	switch s.Threshold.Method {
	case "youden", "closest.topleft", "prevalence":
	default:
		return fmt.Errorf("unknown threshold.method %q", s.Threshold.Method)
	}
	return nil
}

func knownModel(name string) bool {
	for _, m := range KnownModels {
		if m == name {
			return true
		}
	}
	return false
}

func knownMetric(name string) bool {
	for _, m := range climate.Metrics {
		if m == name {
			return true
		}
	}
	return false
}

// DataPath resolves a study-relative data file against TRM_DATA_PATH.
func (s *Study) DataPath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(properties.DataPath(), rel)
}

// OutputDir is where every artifact of this study's run lands.
func (s *Study) OutputDir() string {
	return filepath.Join(properties.OutputPath(), s.Name)
}
