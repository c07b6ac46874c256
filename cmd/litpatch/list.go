package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kevinwang15/litpatch"
	"github.com/kevinwang15/litpatch/internal/config"
	"github.com/kevinwang15/litpatch/internal/log"
	"github.com/kevinwang15/litpatch/internal/store"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [document...]",
		Short: "List the records of each document",
		Long: `List prints one line per record (id, then name when present). With --fields
it prints a readable block per record holding those fields, lists joined by
commas.`,
		RunE: runList,
	}
	cmd.Flags().StringSlice("fields", nil, "Fields to print per record")
	cmd.Flags().String("out", "", "Write to this file instead of stdout")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	paths, err := documents(cfg)
	if err != nil {
		return err
	}
	fields, _ := cmd.Flags().GetStringSlice("fields")
	outPath, _ := cmd.Flags().GetString("out")

	ecfg, err := config.ToEditorConfig(cfg, log.Default)
	if err != nil {
		return err
	}
	ed := litpatch.New(ecfg)

	var b strings.Builder
	for _, p := range paths {
		doc, err := store.Read(p)
		if err != nil {
			return err
		}
		recs, err := ed.List(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if len(fields) == 0 {
			writeIDs(&b, p, doc, recs)
		} else {
			writeBlocks(&b, doc, recs, fields)
		}
	}

	if outPath != "" {
		return store.WriteAtomic(outPath, []byte(b.String()), 0o644)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), b.String())
	return err
}

func writeIDs(b *strings.Builder, path string, doc []byte, recs []litpatch.Record) {
	fmt.Fprintf(b, "# %s: %d record(s)\n", path, len(recs))
	for _, r := range recs {
		line := r.ID
		if name := stringField(doc[r.Span.Start:r.Span.End], "name"); name != "" {
			line += "\t" + name
		}
		if r.Shadowed {
			line += "\t(shadowed)"
		}
		b.WriteString(line + "\n")
	}
}

func writeBlocks(b *strings.Builder, doc []byte, recs []litpatch.Record, fields []string) {
	for i, r := range recs {
		raw := doc[r.Span.Start:r.Span.End]
		name := stringField(raw, "name")
		if name == "" {
			name = r.ID
		}
		header := fmt.Sprintf("Record %d/%d: %s", i+1, len(recs), name)
		b.WriteString(header + "\n")
		b.WriteString(strings.Repeat("-", len(header)) + "\n")
		for _, f := range fields {
			v, ok, err := litpatch.FieldValue(raw, f)
			text := ""
			if err == nil && ok {
				text = plain(v)
			}
			fmt.Fprintf(b, "%s: %s\n", f, text)
		}
		b.WriteString("\n")
	}
}

// plain renders a value for humans: strings unquoted, lists comma-joined.
func plain(v litpatch.Value) string {
	switch v.Kind() {
	case litpatch.KindString:
		return v.Str()
	case litpatch.KindNull:
		return ""
	case litpatch.KindList:
		parts := make([]string, 0, len(v.Items()))
		for _, it := range v.Items() {
			parts = append(parts, plain(it))
		}
		return strings.Join(parts, ", ")
	case litpatch.KindMap:
		parts := make([]string, 0, len(v.Fields()))
		for _, f := range v.Fields() {
			parts = append(parts, f.Key+"="+plain(f.Value))
		}
		return strings.Join(parts, ", ")
	}
	return litpatch.DefaultStyle.Render(v, 0)
}
