package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pricebook/internal"
	"pricebook/internal/config"
	"pricebook/internal/document"
	"pricebook/internal/pipeline"
	"pricebook/internal/source"
	"pricebook/internal/storage"
)

type app struct {
	cfg    config.Config
	db     *storage.DB
	reg    *source.Registry
	logger *log.Logger
}

func main() {
	cfg, err := config.Load()
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{cfg: cfg, logger: log.New(os.Stderr, "", log.LstdFlags)}
	root := &cobra.Command{
		Use:           "pricebook",
		Short:         "Generate price book workbooks from stored pricing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "templates" && !cmd.Flags().Changed("db") {
				return nil
			}
			return a.open()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.db != nil {
				_ = a.db.Close()
			}
		},
	}
	root.AddCommand(a.generateCmd(), a.rowsCmd(), a.templatesCmd(), a.sourcesCmd(), a.loadCmd())

	must(root.ExecuteContext(ctx))
}

func (a *app) open() error {
	db, err := storage.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db %s: %w", a.cfg.DBPath, err)
	}
	a.db = db

	entries, err := config.LoadSources(a.cfg.SourcesFile)
	if err != nil {
		return err
	}
	a.reg, err = source.NewRegistry(db, entries, source.RegistryOptions{
		Logger:             a.logger,
		BaselineTemplateID: a.cfg.BaselineTemplateID,
	})
	return err
}

func (a *app) generateCmd() *cobra.Command {
	var sourceKey, template, out string
	var includeFuture bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fill a template with rows from a price source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var recorder pipeline.RunRecorder
			if a.cfg.RecordRuns {
				recorder = a.db
			}
			gen := pipeline.NewGenerator(a.reg, recorder, a.logger)

			req := internal.Request{
				TemplatePath:        a.resolveTemplate(template),
				SourceKey:           sourceKey,
				ExcludeFuturePrices: a.cfg.ExcludeFuturePrices && !includeFuture,
			}
			if out != "" {
				req.OutputFileName = filepath.Base(out)
			}
			res, err := gen.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = filepath.Join(a.cfg.OutputDir, res.FileName)
			} else if filepath.Base(path) != res.FileName {
				path = filepath.Join(filepath.Dir(path), res.FileName)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, res.Bytes, 0o644); err != nil {
				return err
			}
			fmt.Printf("generated run=%s source=%s rows=%d sheets=%d blocks=%d degraded=%d output=%s\n",
				res.RunID, sourceKey, res.Stats.Rows, res.Stats.Sheets, res.Stats.Leaves, res.Stats.Degraded, path)
			if a.cfg.RecordRuns {
				n, err := a.db.RunCount(cmd.Context(), sourceKey)
				if err != nil {
					a.logger.Printf("WARN: count runs for %s: %v", sourceKey, err)
					return nil
				}
				fmt.Printf("runs source=%s total=%d\n", sourceKey, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceKey, "source", "", "source key (sql, draft-live-<draft>-<template>, draft-<version> or a configured key)")
	cmd.Flags().StringVar(&template, "template", "", "template path or file name in TEMPLATE_DIR")
	cmd.Flags().StringVar(&out, "out", "", "output xlsx path (default OUTPUT_DIR/<suggested name>)")
	cmd.Flags().BoolVar(&includeFuture, "include-future", false, "allow future-dated prices")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func (a *app) rowsCmd() *cobra.Command {
	var sourceKey, out string
	var includeFuture bool
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Export resolved rows of a source as a flat sheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := a.reg.Lookup(sourceKey)
			if err != nil {
				return err
			}
			rows, err := src.FetchRows(cmd.Context(), a.cfg.ExcludeFuturePrices && !includeFuture)
			if err != nil {
				return err
			}
			if err := pipeline.ExportRowsToXLSX(rows, out); err != nil {
				return err
			}
			fmt.Printf("exported %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceKey, "source", "", "source key")
	cmd.Flags().StringVar(&out, "out", "", "output xlsx path")
	cmd.Flags().BoolVar(&includeFuture, "include-future", false, "allow future-dated prices")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) templatesCmd() *cobra.Command {
	var fromDB bool
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List template files, or template slot mappings with --db",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromDB {
				tpls, err := a.db.ListTemplates(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range tpls {
					m, err := t.Mapping()
					if err != nil {
						fmt.Printf("template id=%d name=%q error=%q\n", t.TemplateID, t.TemplateName, err)
						continue
					}
					fmt.Printf("template id=%d name=%q file=%s %s\n", t.TemplateID, t.TemplateName, t.ExcelFileName, m)
				}
				return nil
			}
			files, err := document.ListTemplates(a.cfg.TemplateDir, a.cfg.TemplatePattern)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Printf("%s\t%s\n", f.Name, f.Path)
			}
			fmt.Printf("templates dir=%s count=%d\n", a.cfg.TemplateDir, len(files))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromDB, "db", false, "list template mappings stored in the database")
	return cmd
}

func (a *app) sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured price sources",
		RunE: func(*cobra.Command, []string) error {
			for _, e := range a.reg.Entries() {
				fmt.Printf("source key=%s kind=%s template=%d draft=%d version=%d\n", e.Key, e.Kind, e.TemplateID, e.DraftID, e.VersionID)
			}
			fmt.Println("built-in keys: sql | baseline | draft-live-<draftId>-<templateId> | draft-<versionId>")
			return nil
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "db:load",
		Short: "Load a YAML fixture into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, err := storage.ReadFixture(file)
			if err != nil {
				return err
			}
			counts, err := a.db.LoadFixture(cmd.Context(), fx)
			if err != nil {
				return err
			}
			fmt.Printf("loaded items=%d sections=%d prices=%d templates=%d drafts=%d versions=%d specs=%d\n",
				counts.Items, counts.Sections, counts.Prices, counts.Templates, counts.Drafts, counts.Versions, counts.Specs)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "fixture yaml path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// resolveTemplate accepts a path or a bare file name inside TEMPLATE_DIR.
func (a *app) resolveTemplate(name string) string {
	if _, err := os.Stat(name); err == nil || filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(a.cfg.TemplateDir, name)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
