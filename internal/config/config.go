// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"anubis-dossier/internal/paths"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default run settings
	Defaults struct {
		Verbose bool `yaml:"verbose"`
		Debug   bool `yaml:"debug"`
		NoColor bool `yaml:"no_color"`
		Audit   bool `yaml:"audit"`
	} `yaml:"defaults"`

	// Security settings for document protection
	Security struct {
		EncryptionEnabled bool   `yaml:"encryption_enabled"`
		UserPassword      string `yaml:"user_password"`
		OwnerPassword     string `yaml:"owner_password"`
		AllowPrint        bool   `yaml:"allow_print"`
		AllowCopy         bool   `yaml:"allow_copy"`
		AllowModify       bool   `yaml:"allow_modify"`
		MetadataStripping bool   `yaml:"metadata_stripping"`
		MaxImageBytes     int64  `yaml:"max_image_bytes"`
	} `yaml:"security"`

	// Output settings for assembled documents
	Output struct {
		Dir       string `yaml:"dir"`
		AuditFile string `yaml:"audit_file"`
	} `yaml:"output"`

	// Validation limits
	Limits struct {
		MaxNameLength    int `yaml:"max_name_length"`
		MaxSectionLength int `yaml:"max_section_length"`
		MaxAliases       int `yaml:"max_aliases"`
		MaxSources       int `yaml:"max_sources"`
		MaxRedactions    int `yaml:"max_redactions"`
	} `yaml:"limits"`

	// Caveat policy overrides keyed by classification or TLP marking
	Caveats struct {
		Handling        map[string]string `yaml:"handling"`
		TLPRestrictions map[string]string `yaml:"tlp_restrictions"`
		Distribution    map[string]string `yaml:"distribution"`
	} `yaml:"caveats"`
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	// Default configuration
	config := &Config{}

	// Set default values
	config.Defaults.Verbose = false
	config.Defaults.Debug = false
	config.Defaults.NoColor = false
	config.Defaults.Audit = true

	config.Security.EncryptionEnabled = false
	config.Security.AllowPrint = true
	config.Security.AllowCopy = false
	config.Security.AllowModify = false
	config.Security.MetadataStripping = true
	config.Security.MaxImageBytes = 50 * 1024 * 1024

	config.Output.Dir = normalizePlatformPath("./dossiers")
	config.Output.AuditFile = ""

	config.Limits.MaxNameLength = 200
	config.Limits.MaxSectionLength = 10000
	config.Limits.MaxAliases = 20
	config.Limits.MaxSources = 100
	config.Limits.MaxRedactions = 1000

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	// Read config file
	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Store default values before unmarshaling
	defaultAudit := config.Defaults.Audit
	defaultAllowPrint := config.Security.AllowPrint
	defaultMetadataStripping := config.Security.MetadataStripping

	// Parse YAML
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore defaults if not explicitly set in config file
	// This handles the case where YAML unmarshaling sets bool fields to false
	// when they're not present in the config file
	if !containsField(data, "defaults", "audit") {
		config.Defaults.Audit = defaultAudit
	}
	if !containsField(data, "security", "allow_print") {
		config.Security.AllowPrint = defaultAllowPrint
	}
	if !containsField(data, "security", "metadata_stripping") {
		config.Security.MetadataStripping = defaultMetadataStripping
	}

	// Normalize paths for the current platform
	applyPathDefaults(config)

	// Validate structure at load time. The password policy is checked by
	// ValidateConfig once the caller has resolved the password, which may
	// arrive interactively rather than from the file.
	if err := validateStructure(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations using platform-aware paths
func FindConfigFile() string {
	// Check current directory first - prioritize config.yaml
	if fileExists("config.yaml") {
		return "config.yaml"
	}
	if fileExists("anubis.yaml") {
		return "anubis.yaml"
	}
	if fileExists("anubis.yml") {
		return "anubis.yml"
	}

	// Check for .anubis-dossier.yaml in current directory (project-specific config)
	if fileExists(".anubis-dossier.yaml") {
		return ".anubis-dossier.yaml"
	}
	if fileExists(".anubis-dossier.yml") {
		return ".anubis-dossier.yml"
	}

	// Check standard location using platform-aware paths
	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}

	if runtime.GOOS == "windows" {
		return findWindowsConfigFile()
	}
	return findUnixConfigFile()
}

// findWindowsConfigFile looks for configuration files in Windows-specific locations
func findWindowsConfigFile() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		configFile := filepath.Join(appData, "anubis-dossier", "config.yaml")
		if fileExists(configFile) {
			return configFile
		}
		configFile = filepath.Join(appData, "anubis-dossier", "config.yml")
		if fileExists(configFile) {
			return configFile
		}
	}

	if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
		configFile := filepath.Join(userProfile, ".anubis-dossier", "config.yaml")
		if fileExists(configFile) {
			return configFile
		}
	}

	return ""
}

// findUnixConfigFile looks for configuration files in Unix-specific locations
func findUnixConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeConfig := filepath.Join(home, ".anubis.yaml")
	if fileExists(homeConfig) {
		return homeConfig
	}
	homeConfig = filepath.Join(home, ".anubis.yml")
	if fileExists(homeConfig) {
		return homeConfig
	}

	// Check XDG config directory
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	xdgConfigFile := filepath.Join(xdgConfig, "anubis-dossier", "config.yaml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}
	xdgConfigFile = filepath.Join(xdgConfig, "anubis-dossier", "config.yml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			// Last key - check if it exists
			_, exists := current[key]
			return exists
		}
		// Intermediate key - navigate deeper
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// normalizePlatformPath normalizes a path for the current platform
func normalizePlatformPath(path string) string {
	if path == "" {
		return ""
	}
	return paths.NormalizePath(path)
}

// applyPathDefaults normalizes paths in the configuration for the current platform
func applyPathDefaults(config *Config) {
	if config == nil {
		return
	}
	if config.Output.Dir == "" {
		config.Output.Dir = normalizePlatformPath("./dossiers")
	} else {
		config.Output.Dir = normalizePlatformPath(config.Output.Dir)
	}
	if config.Output.AuditFile != "" {
		config.Output.AuditFile = normalizePlatformPath(config.Output.AuditFile)
	}
}

// ValidateConfig is the single entry-point validation: structural limits
// plus the security policy. Later stages trust a config that passed here.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if config.Security.EncryptionEnabled && config.Security.UserPassword == "" {
		return fmt.Errorf("encryption enabled but no user password configured")
	}
	return validateStructure(config)
}

// validateStructure checks the value ranges and paths that must hold
// regardless of how the password is supplied.
func validateStructure(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if config.Security.MaxImageBytes <= 0 {
		return fmt.Errorf("max_image_bytes must be positive, got %d", config.Security.MaxImageBytes)
	}

	if config.Limits.MaxNameLength <= 0 {
		return fmt.Errorf("max_name_length must be positive, got %d", config.Limits.MaxNameLength)
	}
	if config.Limits.MaxSectionLength <= 0 {
		return fmt.Errorf("max_section_length must be positive, got %d", config.Limits.MaxSectionLength)
	}
	if config.Limits.MaxRedactions <= 0 {
		return fmt.Errorf("max_redactions must be positive, got %d", config.Limits.MaxRedactions)
	}

	if err := validateConfigPaths(config); err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	return nil
}

// validateConfigPaths validates all paths in the configuration
func validateConfigPaths(config *Config) error {
	if config.Output.Dir != "" {
		if err := paths.ValidatePath(config.Output.Dir); err != nil {
			return fmt.Errorf("invalid output directory: %w", err)
		}
	}
	if config.Output.AuditFile != "" {
		if err := paths.ValidatePath(config.Output.AuditFile); err != nil {
			return fmt.Errorf("invalid audit file path: %w", err)
		}
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). The documented defaults are returned only when no config
// file exists at all. A config file that cannot be read, parsed, or validated is an
// error: falling back to defaults here would drop operator policy, e.g. leave
// encryption disabled when the file enabled it.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}
	return LoadConfig(configPath)
}
