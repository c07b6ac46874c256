// Command litpatch updates records embedded in hand-authored data modules.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/kevinwang15/litpatch/internal/config"
	"github.com/kevinwang15/litpatch/internal/log"
	"github.com/kevinwang15/litpatch/internal/store"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "litpatch",
		Short: "Surgically update records inside hand-written data modules",
		Long: `litpatch rewrites the field values of records embedded as object literals
in source files such as src/data/aiToolsData.ts. Only the targeted value
literals change; comments, ordering and formatting are kept byte for byte.`,
		Version:      version,
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file (default: litpatch.yaml when present)")
	pf.String("env-file", ".env.local", "dotenv file loaded before reading the environment")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.StringSlice("data", nil, "Document paths or ** globs (in addition to arguments)")
	pf.String("anchor", "", "Declaration whose array holds the records")
	pf.String("id-field", "", "Field identifying a record")
	pf.Bool("fold-case", false, "Match record ids case-insensitively")

	rootCmd.AddCommand(newApplyCmd(), newListCmd(), newFetchCmd())
	return rootCmd
}

// loadConfig layers defaults, the config file, the environment and the flags
// that were set explicitly on cmd.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}

	cfg := config.Defaults()
	path, _ := flags.GetString("config")
	if path == "" {
		if _, err := os.Stat("litpatch.yaml"); err == nil {
			path = "litpatch.yaml"
		}
	}
	if path != "" {
		fc, err := config.LoadYAML(path, nil)
		if err != nil {
			return config.Config{}, err
		}
		cfg = config.Merge(cfg, fc)
	}

	env, err := config.EnvOverlay(os.Environ())
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.Merge(cfg, env)
	cfg = config.Merge(cfg, flagOverlay(cmd, args))

	log.SetLevel(cfg.Logging.Level)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func flagOverlay(cmd *cobra.Command, args []string) config.Config {
	flags := cmd.Flags()
	set := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	str := func(name string) string {
		if !set(name) {
			return ""
		}
		s, _ := flags.GetString(name)
		return s
	}

	var over config.Config
	docs := append([]string(nil), args...)
	if set("data") {
		data, _ := flags.GetStringSlice("data")
		docs = append(docs, data...)
	}
	over.Documents = docs
	over.Logging.Level = str("log-level")
	over.Anchor = str("anchor")
	over.IDField = str("id-field")
	if set("fold-case") {
		over.FoldCase, _ = flags.GetBool("fold-case")
	}
	over.Updates = str("updates")
	over.Provider = str("provider")
	over.Mode = str("mode")
	over.BackupDir = str("backup-dir")
	over.Stamp.Field = str("stamp-field")
	if set("no-stamp") {
		over.Stamp.Disabled, _ = flags.GetBool("no-stamp")
	}
	if set("allow") {
		over.AllowList, _ = flags.GetStringSlice("allow")
	}
	if set("concurrency") {
		over.Concurrency, _ = flags.GetInt("concurrency")
	}
	over.Gemini.Model = str("model")
	over.Gemini.Snapshot = str("out")
	return over
}

func documents(cfg config.Config) ([]string, error) {
	if len(cfg.Documents) == 0 {
		return nil, errors.New("no documents given (pass paths or --data)")
	}
	return store.Glob(cfg.Documents)
}
