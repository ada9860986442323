// Copyright 2025 ClientAssist
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"clientassist/platform/connectors/base"
)

// ConfigFile represents the root structure of a connectors configuration
// file
type ConfigFile struct {
	Version    string                         `yaml:"version"`
	Connectors map[string]ConnectorFileConfig `yaml:"connectors,omitempty"`
}

// ConnectorFileConfig represents a connector configuration in the config
// file
type ConnectorFileConfig struct {
	Type          string                 `yaml:"type"`
	Enabled       bool                   `yaml:"enabled"`
	DisplayName   string                 `yaml:"display_name,omitempty"`
	Description   string                 `yaml:"description,omitempty"`
	ConnectionURL string                 `yaml:"connection_url,omitempty"`
	Credentials   map[string]string      `yaml:"credentials,omitempty"`
	Options       map[string]interface{} `yaml:"options,omitempty"`
	TimeoutMs     int                    `yaml:"timeout_ms,omitempty"`
	MaxRetries    int                    `yaml:"max_retries,omitempty"`
}

// YAMLConfigFileLoader loads connector configurations from a YAML file
type YAMLConfigFileLoader struct {
	filePath string
	config   *ConfigFile
}

// NewYAMLConfigFileLoader creates a new YAML config file loader
func NewYAMLConfigFileLoader(filePath string) (*YAMLConfigFileLoader, error) {
	loader := &YAMLConfigFileLoader{
		filePath: filePath,
	}

	if err := loader.reload(); err != nil {
		return nil, err
	}

	return loader, nil
}

// reload reads and parses the configuration file
func (l *YAMLConfigFileLoader) reload() error {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", l.filePath, err)
	}

	// Expand environment variables in the content
	expanded := expandEnvVars(string(data))

	var config ConfigFile
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	l.config = &config
	return nil
}

// LoadConnectors returns enabled connector configs from the config file
func (l *YAMLConfigFileLoader) LoadConnectors() ([]*base.ConnectorConfig, error) {
	if l.config == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	var configs []*base.ConnectorConfig

	for name, fileConfig := range l.config.Connectors {
		if !fileConfig.Enabled {
			continue
		}

		timeout := time.Duration(fileConfig.TimeoutMs) * time.Millisecond
		if timeout == 0 {
			timeout = 30 * time.Second
		}

		maxRetries := fileConfig.MaxRetries
		if maxRetries == 0 {
			maxRetries = 3
		}

		options := fileConfig.Options
		if options == nil {
			options = make(map[string]interface{})
		}

		credentials := fileConfig.Credentials
		if credentials == nil {
			credentials = make(map[string]string)
		}

		cfg := &base.ConnectorConfig{
			Name:          name,
			Type:          fileConfig.Type,
			ConnectionURL: fileConfig.ConnectionURL,
			Credentials:   credentials,
			Options:       options,
			Timeout:       timeout,
			MaxRetries:    maxRetries,
		}

		configs = append(configs, cfg)
	}

	return configs, nil
}

// Reload reloads the configuration file
func (l *YAMLConfigFileLoader) Reload() error {
	return l.reload()
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands environment variable references in the string.
// Supports both ${VAR_NAME} and $VAR_NAME syntax.
// Returns empty string for undefined variables (with a warning).
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			log.Printf("Warning: environment variable %s is not set", varName)
			return ""
		}
		return value
	})
}
