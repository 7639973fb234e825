package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarRegex matches ${VAR_NAME} patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadSettings loads connection settings from a YAML file. Required fields
// are not enforced here: settings may be partial and completed by
// command-line flags, and the front end validates the merged result.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	// Substitute environment variables
	data = substituteEnvVars(data)

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// LoadCredentials loads a username and optional password from a JSON
// credentials file, kept separate from the settings file so secrets stay out
// of configuration.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if creds.Username == "" {
		return nil, fmt.Errorf("credentials file %s: username is required", path)
	}

	return &creds, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(envVarRegex.FindSubmatch(match)[1])
		if value := os.Getenv(varName); value != "" {
			return []byte(value)
		}
		return match // Keep original if env var not set
	})
}

func applyDefaults(settings *Settings) {
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Audit.Output == "" {
		settings.Audit.Output = "stdout"
	}
}

func validateSettings(settings *Settings) error {
	switch settings.Audit.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("audit output must be stdout, file or both, got %q", settings.Audit.Output)
	}
	if settings.Audit.Enabled && settings.Audit.Output != "stdout" && settings.Audit.FilePath == "" {
		return fmt.Errorf("audit file_path is required for output %q", settings.Audit.Output)
	}
	return nil
}
