package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kevinwang15/litpatch"
)

// Defaults returns the configuration used when nothing else is given.
func Defaults() Config {
	return Config{
		Provider:    "file",
		Anchor:      "export const aiToolsData",
		IDField:     "id",
		Mode:        "patch",
		Stamp:       Stamp{Field: "lastUpdated", Layout: time.DateOnly},
		Concurrency: 4,
		Logging:     Logging{Level: "info"},
		Gemini: Gemini{
			Model:       "gemini-2.5-flash",
			Concurrency: 2,
			RateDelay:   2 * time.Second,
			MaxRetries:  3,
			Timeout:     30 * time.Second,
		},
	}
}

// LoadYAML parses a Config from raw YAML or, when raw is empty, from path.
// Unknown keys are rejected.
func LoadYAML(path string, raw []byte) (Config, error) {
	var cfg Config
	if len(raw) == 0 {
		if path == "" {
			return cfg, errors.New("no config source provided")
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		raw = b
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge layers over on top of base. Only non-empty values replace.
func Merge(base, over Config) Config {
	out := base
	if len(over.Documents) > 0 {
		out.Documents = append([]string(nil), over.Documents...)
	}
	setString(&out.Updates, over.Updates)
	setString(&out.Provider, over.Provider)
	setString(&out.Anchor, over.Anchor)
	setString(&out.IDField, over.IDField)
	setString(&out.Mode, over.Mode)
	if over.FoldCase {
		out.FoldCase = true
	}
	if len(over.AllowList) > 0 {
		out.AllowList = append([]string(nil), over.AllowList...)
	}

	setString(&out.Stamp.Field, over.Stamp.Field)
	setString(&out.Stamp.Layout, over.Stamp.Layout)
	if over.Stamp.Disabled {
		out.Stamp.Disabled = true
	}
	setString(&out.Style.Quote, over.Style.Quote)
	// Indent is whitespace, so it is compared untrimmed.
	if over.Style.Indent != "" {
		out.Style.Indent = over.Style.Indent
	}
	setString(&out.Style.Null, over.Style.Null)

	setString(&out.BackupDir, over.BackupDir)
	if over.Concurrency > 0 {
		out.Concurrency = over.Concurrency
	}
	setString(&out.Logging.Level, over.Logging.Level)

	setString(&out.Gemini.APIKey, over.Gemini.APIKey)
	setString(&out.Gemini.Model, over.Gemini.Model)
	setString(&out.Gemini.Snapshot, over.Gemini.Snapshot)
	if over.Gemini.Concurrency > 0 {
		out.Gemini.Concurrency = over.Gemini.Concurrency
	}
	if over.Gemini.RateDelay > 0 {
		out.Gemini.RateDelay = over.Gemini.RateDelay
	}
	if over.Gemini.MaxRetries > 0 {
		out.Gemini.MaxRetries = over.Gemini.MaxRetries
	}
	if over.Gemini.Timeout > 0 {
		out.Gemini.Timeout = over.Gemini.Timeout
	}
	return out
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// EnvOverlay builds an overlay from environment entries ("KEY=value"). Keys use
// the LITPATCH_ prefix; the Gemini key is also read from GEMINI_API_KEY and
// NEXT_PUBLIC_GEMINI_API_KEY, the prefixed name winning.
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	var apiKey, publicKey string
	for _, kv := range environ {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		switch key {
		case "GEMINI_API_KEY":
			apiKey = val
			continue
		case "NEXT_PUBLIC_GEMINI_API_KEY":
			publicKey = val
			continue
		}
		if !strings.HasPrefix(key, "LITPATCH_") {
			continue
		}
		switch strings.TrimPrefix(key, "LITPATCH_") {
		case "DOCUMENTS":
			over.Documents = splitComma(val)
		case "UPDATES":
			over.Updates = val
		case "PROVIDER":
			over.Provider = val
		case "ANCHOR":
			over.Anchor = val
		case "ID_FIELD":
			over.IDField = val
		case "MODE":
			over.Mode = val
		case "FOLD_CASE":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, fmt.Errorf("LITPATCH_FOLD_CASE: %w", err)
			}
			over.FoldCase = b
		case "ALLOW_LIST":
			over.AllowList = splitComma(val)
		case "STAMP_FIELD":
			over.Stamp.Field = val
		case "BACKUP_DIR":
			over.BackupDir = val
		case "CONCURRENCY":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return over, fmt.Errorf("LITPATCH_CONCURRENCY: %w", err)
			}
			over.Concurrency = n
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "GEMINI_API_KEY":
			over.Gemini.APIKey = val
		case "GEMINI_MODEL":
			over.Gemini.Model = val
		case "GEMINI_RATE_DELAY":
			d, err := time.ParseDuration(strings.TrimSpace(val))
			if err != nil {
				return over, fmt.Errorf("LITPATCH_GEMINI_RATE_DELAY: %w", err)
			}
			over.Gemini.RateDelay = d
		}
	}
	if over.Gemini.APIKey == "" {
		over.Gemini.APIKey = apiKey
	}
	if over.Gemini.APIKey == "" {
		over.Gemini.APIKey = publicKey
	}
	return over, nil
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv sets variables from a dotenv file (such as .env.local) that are not
// already present in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return fmt.Errorf("%s:%d: expected KEY=value", path, line)
		}
		key := strings.TrimSpace(s[:eq])
		val := strings.TrimSpace(s[eq+1:])
		if n := len(val); n >= 2 && (val[0] == '"' || val[0] == '\'') && val[n-1] == val[0] {
			val = val[1 : n-1]
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Validate checks the merged configuration.
func Validate(c Config) error {
	var errs []error
	if _, err := litpatch.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	switch c.Provider {
	case "file", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	switch c.Style.Quote {
	case "", "'", `"`, "`":
	default:
		errs = append(errs, fmt.Errorf("style.quote must be one of ' \" `, got %q", c.Style.Quote))
	}
	if strings.Trim(c.Style.Indent, " \t") != "" {
		errs = append(errs, fmt.Errorf("style.indent must be blanks, got %q", c.Style.Indent))
	}
	switch c.Style.Null {
	case "", "null", "undefined":
	default:
		errs = append(errs, fmt.Errorf("style.null must be null or undefined, got %q", c.Style.Null))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be >= 1"))
	}
	if c.Provider == "gemini" {
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("gemini provider needs an API key (GEMINI_API_KEY)"))
		}
		if c.Gemini.Concurrency < 1 {
			errs = append(errs, errors.New("gemini.concurrency must be >= 1"))
		}
	}
	return errors.Join(errs...)
}
