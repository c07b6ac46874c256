package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kevinwang15/litpatch"
	"github.com/kevinwang15/litpatch/internal/config"
	"github.com/kevinwang15/litpatch/internal/log"
	"github.com/kevinwang15/litpatch/internal/store"
	"github.com/kevinwang15/litpatch/provider"
	"github.com/kevinwang15/litpatch/provider/gemini"
)

const defaultSnapshot = "aiToolsData_updated.json"

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [document...]",
		Short: "Ask Gemini for fresh data on every record and save a replayable snapshot",
		RunE:  runFetch,
	}
	cmd.Flags().String("out", "", "Snapshot path (default "+defaultSnapshot+")")
	cmd.Flags().String("model", "", "Gemini model")
	cmd.Flags().Int("limit", 50, "Maximum number of records to fetch (0 for all)")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("no Gemini API key: set GEMINI_API_KEY or NEXT_PUBLIC_GEMINI_API_KEY")
	}
	paths, err := documents(cfg)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	out := cfg.Gemini.Snapshot
	if out == "" {
		out = defaultSnapshot
	}

	logger := log.With("run", uuid.NewString())
	ecfg, err := config.ToEditorConfig(cfg, logger)
	if err != nil {
		return err
	}
	tools, err := collectTools(litpatch.New(ecfg), paths, limit)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g, err := gemini.New(ctx, cfg.Gemini.APIKey, tools, geminiOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	set, err := provider.Fetch(ctx, g, logger)
	if err != nil {
		return err
	}
	if err := gemini.SaveSnapshot(out, set, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d of %d record(s) into %s\n", len(set), len(tools), out)
	return nil
}

func geminiOptions(cfg config.Config, logger log.Logger) []gemini.Option {
	return []gemini.Option{
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithConcurrency(cfg.Gemini.Concurrency),
		gemini.WithRateDelay(cfg.Gemini.RateDelay),
		gemini.WithMaxRetries(cfg.Gemini.MaxRetries),
		gemini.WithTimeout(cfg.Gemini.Timeout),
		gemini.WithLogger(logger),
	}
}

// collectTools reads the addressable records of every document. Ids seen in an
// earlier document are skipped. limit <= 0 means no limit.
func collectTools(ed *litpatch.Editor, paths []string, limit int) ([]gemini.Tool, error) {
	seen := map[string]struct{}{}
	var tools []gemini.Tool
	for _, p := range paths {
		doc, err := store.Read(p)
		if err != nil {
			return nil, err
		}
		recs, err := ed.List(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for _, rec := range recs {
			if _, dup := seen[rec.ID]; dup || rec.Shadowed {
				continue
			}
			seen[rec.ID] = struct{}{}
			raw := doc[rec.Span.Start:rec.Span.End]
			tools = append(tools, gemini.Tool{
				ID:       rec.ID,
				Name:     stringField(raw, "name"),
				Company:  stringField(raw, "company"),
				Category: stringField(raw, "category"),
			})
			if limit > 0 && len(tools) == limit {
				return tools, nil
			}
		}
	}
	return tools, nil
}

func stringField(raw []byte, name string) string {
	v, ok, err := litpatch.FieldValue(raw, name)
	if err != nil || !ok || v.Kind() != litpatch.KindString {
		return ""
	}
	return v.Str()
}
