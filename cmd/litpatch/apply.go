package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/kevinwang15/litpatch"
	"github.com/kevinwang15/litpatch/internal/config"
	"github.com/kevinwang15/litpatch/internal/log"
	"github.com/kevinwang15/litpatch/internal/store"
	"github.com/kevinwang15/litpatch/provider"
	"github.com/kevinwang15/litpatch/provider/file"
	"github.com/kevinwang15/litpatch/provider/gemini"
	"github.com/kevinwang15/litpatch/report"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [document...]",
		Short: "Apply an update set to one or more documents",
		RunE:  runApply,
	}
	f := cmd.Flags()
	f.String("updates", "", "Update file (JSON, JSONC or YAML) for the file provider")
	f.String("provider", "", "Update provider: file|gemini")
	f.String("mode", "", "Rewrite mode: patch|replace")
	f.StringSlice("allow", nil, `Allowed fields (default: AI tool fields, "*" for all)`)
	f.String("stamp-field", "", "Field set to today's date on every changed record")
	f.Bool("no-stamp", false, "Do not touch the stamp field")
	f.Bool("dry-run", false, "Compute changes without writing")
	f.Bool("diff", false, "Print a unified diff per changed document")
	f.String("report", "", "Write a Markdown summary to this path")
	f.String("backup-dir", "", "Directory for backups (default: next to each document)")
	f.Bool("no-backup", false, "Do not back up documents before writing")
	f.Int("concurrency", 0, "Documents processed in parallel")
	f.String("model", "", "Gemini model for --provider gemini")
	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	paths, err := documents(cfg)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	showDiff, _ := cmd.Flags().GetBool("diff")
	reportPath, _ := cmd.Flags().GetString("report")
	noBackup, _ := cmd.Flags().GetBool("no-backup")

	runID := uuid.NewString()
	logger := log.With("run", runID)
	ecfg, err := config.ToEditorConfig(cfg, logger)
	if err != nil {
		return err
	}
	ed := litpatch.New(ecfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := newProvider(ctx, cfg, ed, paths, logger)
	if err != nil {
		return err
	}
	updates, _ := provider.Fetch(ctx, p, logger)

	sum := report.New(runID, time.Now(), dryRun)
	sum.AllowedFields = ecfg.AllowList.Names()
	r := &runner{
		ed:       ed,
		updates:  updates,
		dryRun:   dryRun,
		backup:   !noBackup,
		backupTo: cfg.BackupDir,
		log:      logger,
		sum:      sum,
		diffs:    map[string]string{},
	}
	if err := r.run(paths, cfg.Concurrency); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showDiff || dryRun {
		writeDiffs(out, r.diffs)
	}
	if reportPath != "" {
		if err := store.WriteAtomic(reportPath, []byte(sum.Markdown()), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	t := sum.Totals()
	fmt.Fprintf(out, "%d document(s), %d changed, %d record(s) updated, %d unchanged, %d not found\n",
		t.Documents, t.Changed, t.Applied, t.Unchanged, t.NotFound)
	if t.Failed > 0 {
		return fmt.Errorf("%d document(s) failed", t.Failed)
	}
	return nil
}

func newProvider(ctx context.Context, cfg config.Config, ed *litpatch.Editor, paths []string,
	logger log.Logger) (provider.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		tools, err := collectTools(ed, paths, 0)
		if err != nil {
			return nil, err
		}
		g, err := gemini.New(ctx, cfg.Gemini.APIKey, tools, geminiOptions(cfg, logger)...)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		if cfg.Updates == "" {
			return nil, fmt.Errorf("the file provider needs --updates")
		}
		return file.New(cfg.Updates), nil
	}
}

// runner edits documents concurrently; each document is handled start to
// finish by a single worker.
type runner struct {
	ed       *litpatch.Editor
	updates  litpatch.UpdateSet
	dryRun   bool
	backup   bool
	backupTo string
	log      log.Logger
	sum      *report.Summary

	mu    sync.Mutex
	diffs map[string]string
}

func (r *runner) run(paths []string, concurrency int) error {
	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(concurrency, func(arg any) {
		path, ok := arg.(string)
		if !ok {
			panic("document pool args type error")
		}
		defer wg.Done()
		r.sum.Add(r.process(path))
	})
	if err != nil {
		return fmt.Errorf("create document pool: %w", err)
	}
	defer pool.Release()

	for _, p := range paths {
		wg.Add(1)
		if err := pool.Invoke(p); err != nil {
			wg.Done()
			r.sum.Add(report.Document{Path: p, Err: err})
		}
	}
	wg.Wait()
	return nil
}

func (r *runner) process(path string) report.Document {
	d := report.Document{Path: path}
	doc, err := store.Read(path)
	if err != nil {
		d.Err = err
		r.log.Errorf("%s: %v", path, err)
		return d
	}
	res, err := r.ed.Apply(doc, r.updates)
	d.Result = res
	if err != nil {
		d.Err = err
		r.log.Errorf("%s: %v", path, err)
		return d
	}
	if !res.Changed() {
		r.log.Infof("%s: no changes", path)
		return d
	}

	diff, err := report.Diff(path, res.Original, res.Doc)
	if err != nil {
		r.log.Warnf("%s: diff: %v", path, err)
	}
	r.mu.Lock()
	r.diffs[path] = diff
	r.mu.Unlock()

	if r.dryRun {
		return d
	}
	if r.backup {
		b, err := store.Backup(path, r.backupTo, time.Now())
		if err != nil {
			d.Err = fmt.Errorf("backup: %w", err)
			r.log.Errorf("%s: %v; document left untouched", path, d.Err)
			return d
		}
		d.Backup = b
	}
	if err := store.WriteAtomic(path, res.Doc, 0o644); err != nil {
		d.Err = fmt.Errorf("write: %w", err)
		r.log.Errorf("%s: %v", path, d.Err)
		return d
	}
	d.Written = true
	r.log.Infof("%s: %d record(s) rewritten", path, len(res.Plan))
	return d
}

func writeDiffs(w io.Writer, diffs map[string]string) {
	paths := make([]string, 0, len(diffs))
	for p := range diffs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		io.WriteString(w, diffs[p])
	}
}
