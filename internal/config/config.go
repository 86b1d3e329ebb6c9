package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	AppName = "marquee"
	// EnvPrefix namespaces every environment variable the CLI reads.
	EnvPrefix = "MARQUEE"

	relativePath = AppName + "/config.toml"

	DefaultCity              = "pdx"
	DefaultRequestsPerSecond = 2.0
	DefaultTimeout           = 30 * time.Second
	DefaultLogLevel          = "info"
)

var ErrInvalidConfig = errors.New("invalid config")

// Duration reads "30s" style strings from TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %w", ErrInvalidConfig, text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Values are the settings a config file may carry. Flags and environment
// variables override them.
type Values struct {
	OMDbAPIKey        string   `toml:"omdb_api_key"`
	TMDBToken         string   `toml:"tmdb_token"`
	DefaultCity       string   `toml:"default_city"`
	TheatersDir       string   `toml:"theaters_dir"`
	Threshold         float64  `toml:"threshold"`
	Sort              bool     `toml:"sort"`
	Output            string   `toml:"output"`
	Headless          bool     `toml:"headless"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
	LogLevel          string   `toml:"log_level"`
	LogFile           string   `toml:"log_file"`
}

func Defaults() Values {
	return Values{
		DefaultCity:       DefaultCity,
		Output:            "text",
		RequestsPerSecond: DefaultRequestsPerSecond,
		Timeout:           Duration(DefaultTimeout),
		LogLevel:          DefaultLogLevel,
	}
}

// DefaultPath finds config.toml under the XDG config directories. It returns
// "" when there is none.
func DefaultPath() string {
	path, err := xdg.SearchConfigFile(relativePath)
	if err != nil {
		return ""
	}
	return path
}

// Load reads path over the defaults. An empty path yields the defaults.
// Keys missing from the file keep their default values.
func Load(fsys afero.Fs, path string) (Values, error) {
	vals := Defaults()
	if path == "" {
		return vals, nil
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return vals, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &vals); err != nil {
		return vals, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := vals.Validate(); err != nil {
		return vals, fmt.Errorf("%s: %w", path, err)
	}
	return vals, nil
}

func (v Values) Validate() error {
	switch {
	case v.Threshold < 0 || v.Threshold > 100:
		return fmt.Errorf("%w: threshold %v out of range [0, 100]", ErrInvalidConfig, v.Threshold)
	case v.RequestsPerSecond < 0:
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	case v.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadDotEnv exports .env entries from the working directory into the process
// environment. Variables that are already set win. A missing file is fine.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// EnvVar names the environment variable for a flag, e.g. "log-level" is MARQUEE_LOG_LEVEL.
func EnvVar(flag string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// Save writes vals as TOML, creating parent directories.
func Save(fsys afero.Fs, path string, vals Values) error {
	data, err := toml.Marshal(vals)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// WritablePath is where `config init` puts a fresh file.
func WritablePath() (string, error) {
	return xdg.ConfigFile(relativePath)
}

