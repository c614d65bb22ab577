package bauplan

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables honored by Resolve.
const (
	EnvProfile  = "BAUPLAN_PROFILE"
	EnvAPIKey   = "BAUPLAN_API_KEY"
	EnvEndpoint = "BAUPLAN_API_ENDPOINT"
)

const (
	configDirName  = ".bauplan"
	configFileName = "config.yml"
)

// ConnectionError wraps any failure to provision a client.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to connect to Bauplan: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// profileConfig mirrors the layout of ~/.bauplan/config.yml, the file the
// Bauplan CLI writes on `bauplan config set`.
type profileConfig struct {
	ActiveProfile string               `yaml:"active_profile,omitempty"`
	Profiles      map[string]profileEntry `yaml:"profiles"`
}

type profileEntry struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"api_endpoint,omitempty"`
}

// ConfigPath returns the path of the profile config file.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Resolve builds a fresh authenticated client for one tool invocation.
//
// Precedence: if BAUPLAN_PROFILE is set the named profile wins and any
// per-call key is ignored; else a non-empty apiKey argument is used; else
// default resolution falls back to BAUPLAN_API_KEY and finally to the
// active profile of ~/.bauplan/config.yml. The chosen path is logged,
// never the credential value. Failures come back as *ConnectionError and
// are never retried.
func Resolve(apiKey string) (*Client, error) {
	if profile := os.Getenv(EnvProfile); profile != "" {
		client, err := clientFromProfile(profile)
		if err != nil {
			return nil, &ConnectionError{Cause: err}
		}
		log.Printf("Connected to Bauplan (profile %q)", profile)
		return client, nil
	}

	if apiKey != "" {
		log.Printf("Connected to Bauplan (api key argument)")
		return NewClient(apiKey, endpointOpts()...), nil
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		log.Printf("Connected to Bauplan (environment)")
		return NewClient(key, endpointOpts()...), nil
	}

	client, err := clientFromProfile("")
	if err != nil {
		return nil, &ConnectionError{Cause: err}
	}
	log.Printf("Connected to Bauplan (default profile)")
	return client, nil
}

// clientFromProfile loads the named profile from the config file. An empty
// name selects the file's active profile, falling back to "default".
func clientFromProfile(name string) (*Client, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile config: %w", err)
	}

	var cfg profileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse profile config: %w", err)
	}

	if name == "" {
		name = cfg.ActiveProfile
		if name == "" {
			name = "default"
		}
	}

	entry, ok := cfg.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found in %s", name, path)
	}
	if entry.APIKey == "" {
		return nil, fmt.Errorf("profile %q has no api_key", name)
	}

	opts := endpointOpts()
	if entry.Endpoint != "" {
		opts = append(opts, WithEndpoint(entry.Endpoint))
	}
	return NewClient(entry.APIKey, opts...), nil
}

func endpointOpts() []Option {
	if endpoint := os.Getenv(EnvEndpoint); endpoint != "" {
		return []Option{WithEndpoint(endpoint)}
	}
	return nil
}
