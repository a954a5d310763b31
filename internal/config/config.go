package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/arnavshah/roster-solver-go/pkg/scheduler"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPaths are probed in order; the first existing file is loaded
var envPaths = []string{".env", "../.env", "../../.env"}

// Config is the service configuration assembled from the environment
type Config struct {
	Port            string `validate:"required,numeric"`
	GinMode         string `validate:"omitempty,oneof=debug release test"`
	DatabaseURL     string
	DataPath        string `validate:"required"`
	JWTSecret       string
	APIMasterSecret string
	AdminUsername   string `validate:"required"`
	AdminPassword   string `validate:"required"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	LogFormat       string `validate:"oneof=json console"`
	Solver          Solver
}

// Solver holds the solve settings. Tuning comes from the optional YAML file
type Solver struct {
	Workers      int           `validate:"min=1,max=64"`
	MaxTimeLimit time.Duration `validate:"gte=0"`
	TuningPath   string
	Tuning       Tuning
}

// Tuning is the YAML solver tuning file
type Tuning struct {
	Weights        scheduler.Weights `yaml:"weights"`
	Limits         scheduler.Limits  `yaml:"limits"`
	TransitionMode string            `yaml:"transition_mode" validate:"omitempty,oneof=after_double after_night"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadEnv loads the first .env file found and returns its path, or "" when
// none exists
func LoadEnv() string {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return p
		}
	}
	return ""
}

// Load reads .env, the process environment and the tuning file named by
// SOLVER_CONFIG, then validates the result
func Load() (*Config, error) {
	LoadEnv()
	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from getenv, applying defaults. It does not
// validate
func FromEnv(getenv func(string) string) (*Config, error) {
	defaults := scheduler.DefaultOptions()
	cfg := &Config{
		Port:            or(getenv("PORT"), "8000"),
		GinMode:         getenv("GIN_MODE"),
		DatabaseURL:     getenv("DATABASE_URL"),
		DataPath:        or(getenv("DATA_PATH"), "roster.db"),
		JWTSecret:       getenv("JWT_SECRET"),
		APIMasterSecret: getenv("API_MASTER_SECRET"),
		AdminUsername:   or(getenv("ADMIN_USERNAME"), "admin"),
		AdminPassword:   or(getenv("ADMIN_PASSWORD"), "admin123"),
		LogLevel:        or(getenv("LOG_LEVEL"), "info"),
		LogFormat:       or(getenv("LOG_FORMAT"), "json"),
		Solver: Solver{
			Workers:      defaults.Workers,
			MaxTimeLimit: defaults.MaxTimeLimit,
			TuningPath:   getenv("SOLVER_CONFIG"),
			Tuning:       DefaultTuning(),
		},
	}

	if v := getenv("SOLVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SOLVER_WORKERS %q: %w", v, err)
		}
		cfg.Solver.Workers = n
	}
	if v := getenv("SOLVER_MAX_TIME_LIMIT"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SOLVER_MAX_TIME_LIMIT %q: %w", v, err)
		}
		cfg.Solver.MaxTimeLimit = d
	}
	if cfg.Solver.TuningPath != "" {
		t, err := LoadTuning(cfg.Solver.TuningPath, cfg.Solver.Tuning)
		if err != nil {
			return nil, err
		}
		cfg.Solver.Tuning = *t
	}
	return cfg, nil
}

// LoadTuning reads a YAML tuning file over base. Keys absent from the file
// keep their base value
func LoadTuning(path string, base Tuning) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read solver config: %w", err)
	}
	t := base
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse solver config: %w", err)
	}
	if err := validate.Struct(&t); err != nil {
		return nil, fmt.Errorf("solver config validation failed: %w", err)
	}
	return &t, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// SchedulerOptions converts the solver settings into scheduler options
func (c *Config) SchedulerOptions() scheduler.Options {
	opts := c.Solver.Tuning.Apply(scheduler.DefaultOptions())
	opts.Workers = c.Solver.Workers
	opts.MaxTimeLimit = c.Solver.MaxTimeLimit
	return opts
}

// DefaultTuning returns the built-in weights, limits and transition mode
func DefaultTuning() Tuning {
	d := scheduler.DefaultOptions()
	return Tuning{Weights: d.Weights, Limits: d.Limits, TransitionMode: string(d.TransitionMode)}
}

// Apply copies the tuning onto opts
func (t Tuning) Apply(opts scheduler.Options) scheduler.Options {
	opts.Weights = t.Weights
	opts.Limits = t.Limits
	if t.TransitionMode != "" {
		opts.TransitionMode = scheduler.TransitionMode(t.TransitionMode)
	}
	return opts
}

// parseSeconds accepts a bare number of seconds or a Go duration string
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
