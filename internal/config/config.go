// Package config holds the CLI's settings and the local inbox keystore.
// Settings resolve with env > config file > default; every key is also
// reachable as VSB_<KEY> in the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL  = "https://api.vaultsandbox.com"
	DefaultStrategy = "sse"
	DefaultOutput   = "pretty"
)

var v = viper.New()

func init() {
	v.SetEnvPrefix("VSB")
	v.AutomaticEnv()
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("strategy", DefaultStrategy)
	v.SetDefault("output", DefaultOutput)
}

// Dir returns the vsb config directory. VSB_CONFIG_DIR overrides the
// platform default.
func Dir() (string, error) {
	if dir := os.Getenv("VSB_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "vsb"), nil
}

// Path returns the config file path (<dir>/config.yaml).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureDir creates the config directory if needed.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// Load reads the config file into the resolver. A missing file is fine;
// env and defaults still apply. Pass an explicit path to override the
// default location.
func Load(path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return err
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

func APIKey() string   { return v.GetString("api_key") }
func BaseURL() string  { return v.GetString("base_url") }
func Strategy() string { return v.GetString("strategy") }
func Output() string   { return v.GetString("output") }

// File is the on-disk shape of config.yaml.
type File struct {
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`
	Output   string `yaml:"output,omitempty"`
}

// ReadFile loads the raw config file without env or default overlays,
// for editing by 'vsb config set'.
func ReadFile() (*File, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &f, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// WriteFile persists the config file with owner-only permissions and
// reloads the resolver so the change is visible in-process.
func WriteFile(f *File) error {
	if err := EnsureDir(); err != nil {
		return err
	}
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	return Load(path)
}
