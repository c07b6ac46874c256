// Package config loads the litpatch run configuration.
//
// Sources are layered with Merge in increasing priority: Defaults, the YAML
// file, the environment (EnvOverlay) and finally command-line flags. Every
// layer is a plain Config; empty values never override.
package config

import "time"

// Config is read once per run and never mutated afterwards.
type Config struct {
	// Documents are paths or ** glob patterns of the files to edit.
	Documents []string `yaml:"documents"`
	// Updates is the update file replayed by the file provider.
	Updates string `yaml:"updates"`
	// Provider is "file" or "gemini".
	Provider string `yaml:"provider"`

	Anchor   string `yaml:"anchor"`
	IDField  string `yaml:"id_field"`
	Mode     string `yaml:"mode"`
	FoldCase bool   `yaml:"fold_case"`
	// AllowList names the fields an update may touch. Empty means the default
	// AI tool field set; a single "*" allows everything.
	AllowList []string `yaml:"allow_list"`

	Stamp Stamp       `yaml:"stamp"`
	Style StyleConfig `yaml:"style"`

	BackupDir   string `yaml:"backup_dir"`
	Concurrency int    `yaml:"concurrency"`

	Logging Logging `yaml:"logging"`
	Gemini  Gemini  `yaml:"gemini"`
}

// Stamp configures the last-updated field rewritten on every changed record.
type Stamp struct {
	Field    string `yaml:"field"`
	Layout   string `yaml:"layout"`
	Disabled bool   `yaml:"disabled"`
}

// StyleConfig overrides the lexical style detected from each document. Any
// empty member is detected.
type StyleConfig struct {
	Quote  string `yaml:"quote"`
	Indent string `yaml:"indent"`
	Null   string `yaml:"null"`
}

// Logging only carries the level; output always goes to stderr.
type Logging struct {
	Level string `yaml:"level"`
}

// Gemini configures the generative update provider.
type Gemini struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Concurrency int           `yaml:"concurrency"`
	RateDelay   time.Duration `yaml:"rate_delay"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
	// Snapshot, when set, receives the fetched updates as JSON.
	Snapshot string `yaml:"snapshot"`
}
