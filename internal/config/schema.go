package config

import (
	"fmt"
	"time"

	"github.com/jackzampolin/tablescan/internal/profile"
)

// Config holds tablescan configuration.
// Stored at: {home}/config.yaml
type Config struct {
	AWS           AWSCfg                  `mapstructure:"aws" yaml:"aws"`
	Textract      TextractCfg             `mapstructure:"textract" yaml:"textract"`
	Notifications NotificationsCfg        `mapstructure:"notifications" yaml:"notifications"`
	Defaults      DefaultsCfg             `mapstructure:"defaults" yaml:"defaults"`
	Profiles      map[string]profile.Spec `mapstructure:"profiles" yaml:"profiles"`         // Inline profiles keyed by document type
	ProfileFiles  []string                `mapstructure:"profile_files" yaml:"profile_files"` // Extra YAML/JSON profile files
}

// AWSCfg selects the account, region and bucket documents are read from.
type AWSCfg struct {
	Region  string `mapstructure:"region" yaml:"region"`
	Profile string `mapstructure:"profile" yaml:"profile"`   // Shared config profile (optional)
	Bucket  string `mapstructure:"bucket" yaml:"bucket"`     // Supports ${ENV_VAR} syntax
	RoleARN string `mapstructure:"role_arn" yaml:"role_arn"` // Role the service assumes to publish notifications
}

// TextractCfg configures analysis jobs.
type TextractCfg struct {
	Mode         string   `mapstructure:"mode" yaml:"mode"`                   // "analysis" or "detection"
	FeatureTypes []string `mapstructure:"feature_types" yaml:"feature_types"` // Analysis features, e.g. TABLES, FORMS
	MaxResults   int      `mapstructure:"max_results" yaml:"max_results"`     // Blocks per result page
	PollInterval int      `mapstructure:"poll_interval" yaml:"poll_interval"` // Seconds between status polls
	MaxPolls     int      `mapstructure:"max_polls" yaml:"max_polls"`
	RateLimit    float64  `mapstructure:"rate_limit" yaml:"rate_limit"` // Result page requests per second
}

// NotificationsCfg configures the completion notification channel.
type NotificationsCfg struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	WaitSeconds int  `mapstructure:"wait_seconds" yaml:"wait_seconds"` // Long-poll wait per receive
	MaxMessages int  `mapstructure:"max_messages" yaml:"max_messages"`
	Timeout     int  `mapstructure:"timeout" yaml:"timeout"` // Seconds before giving up on a notification
}

// DefaultsCfg specifies default selections.
type DefaultsCfg struct {
	Profile      string `mapstructure:"profile" yaml:"profile"`             // Document type profile
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"` // json, yaml or xlsx
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSCfg{
			Region:  "eu-central-1",
			Bucket:  "${TABLESCAN_BUCKET}",
			RoleARN: "${TABLESCAN_ROLE_ARN}",
		},
		Textract: TextractCfg{
			Mode:         "analysis",
			FeatureTypes: []string{"TABLES", "FORMS"},
			MaxResults:   1000,
			PollInterval: 5,
			MaxPolls:     120,
			RateLimit:    2.0,
		},
		Notifications: NotificationsCfg{
			Enabled:     true,
			WaitSeconds: 20,
			MaxMessages: 10,
			Timeout:     600,
		},
		Defaults: DefaultsCfg{
			Profile:      profile.BankStatementName,
			OutputFormat: "json",
			LogLevel:     "info",
		},
		Profiles:     map[string]profile.Spec{},
		ProfileFiles: []string{},
	}
}

// ResolvedAWS returns the AWS section with ${ENV_VAR} references expanded.
func (c *Config) ResolvedAWS() AWSCfg {
	return AWSCfg{
		Region:  ResolveEnvVars(c.AWS.Region),
		Profile: ResolveEnvVars(c.AWS.Profile),
		Bucket:  ResolveEnvVars(c.AWS.Bucket),
		RoleARN: ResolveEnvVars(c.AWS.RoleARN),
	}
}

// PollEvery returns the status poll interval.
func (t TextractCfg) PollEvery() time.Duration {
	if t.PollInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.PollInterval) * time.Second
}

// TimeoutDuration returns how long to wait for a completion notification.
func (n NotificationsCfg) TimeoutDuration() time.Duration {
	if n.Timeout <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(n.Timeout) * time.Second
}

// ProfileRegistry builds a registry from the built-in profiles, the inline
// profiles and every profile file, in that order. Later entries replace
// earlier ones with the same name.
func (c *Config) ProfileRegistry() (*profile.Registry, error) {
	reg := profile.NewRegistry()
	for key, spec := range c.Profiles {
		if spec.Name == "" {
			spec.Name = key
		}
		if err := reg.Register(spec); err != nil {
			return nil, fmt.Errorf("profile %s: %w", key, err)
		}
	}
	if err := reg.LoadFiles(c.ProfileFiles...); err != nil {
		return nil, err
	}
	return reg, nil
}
