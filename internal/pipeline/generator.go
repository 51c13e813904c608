package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricebook/internal"
	"pricebook/internal/document"
	"pricebook/internal/source"
	"pricebook/internal/storage"
)

// SourceLookup resolves a request's source key. *source.Registry is the
// production implementation.
type SourceLookup interface {
	Lookup(key string) (source.RowSource, error)
}

// RunRecorder stores a log entry per generation. *storage.DB implements it.
type RunRecorder interface {
	InsertRun(ctx context.Context, run storage.Run) error
}

type Result struct {
	RunID    string
	Bytes    []byte
	FileName string
	Stats    Stats
}

type Generator struct {
	sources  SourceLookup
	recorder RunRecorder
	logger   *log.Logger

	// Now stamps document properties and the suggested file name.
	Now func() time.Time
}

// NewGenerator builds a generator. recorder may be nil.
func NewGenerator(sources SourceLookup, recorder RunRecorder, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{sources: sources, recorder: recorder, logger: logger, Now: time.Now}
}

// Generate fills the request's template with rows from its source and
// returns the serialized workbook. The template file is only read.
func (g *Generator) Generate(ctx context.Context, req internal.Request) (Result, error) {
	started := g.Now()
	timings := map[string]float64{}
	mark := func(name string, since time.Time) {
		timings[name] = time.Since(since).Seconds()
	}

	src, err := g.sources.Lookup(req.SourceKey)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(req.TemplatePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", internal.ErrTemplateMissing, req.TemplatePath)
		}
		return Result{}, fmt.Errorf("stat template: %w", err)
	}

	t := time.Now()
	rows, err := src.FetchRows(ctx, req.ExcludeFuturePrices)
	if err != nil {
		return Result{}, fmt.Errorf("fetch rows from %s: %w", req.SourceKey, err)
	}
	mark("fetch", t)

	t = time.Now()
	wb, err := document.OpenTemplate(req.TemplatePath)
	if err != nil {
		return Result{}, err
	}
	defer wb.Close()

	stats, err := Assemble(ctx, wb, rows, g.logger)
	if err != nil {
		return Result{}, fmt.Errorf("assemble: %w", err)
	}
	mark("assemble", t)

	t = time.Now()
	base := templateBase(req.TemplatePath)
	if err := wb.SetProperties(fmt.Sprintf("%s (%s)", base, req.SourceKey), started); err != nil {
		return Result{}, fmt.Errorf("doc properties: %w", err)
	}
	blob, err := wb.Bytes()
	if err != nil {
		return Result{}, fmt.Errorf("serialize: %w", err)
	}
	mark("save", t)

	res := Result{
		RunID:    uuid.NewString(),
		Bytes:    blob,
		FileName: SuggestedFileName(req, started),
		Stats:    stats,
	}
	g.record(ctx, req, res, timings)
	return res, nil
}

func (g *Generator) record(ctx context.Context, req internal.Request, res Result, timings map[string]float64) {
	if g.recorder == nil {
		return
	}
	run := storage.Run{
		RunID:        res.RunID,
		SourceKey:    req.SourceKey,
		TemplatePath: req.TemplatePath,
		FileName:     res.FileName,
		Timings:      timings,
		Counts: map[string]int{
			"rows":     res.Stats.Rows,
			"sheets":   res.Stats.Sheets,
			"leaves":   res.Stats.Leaves,
			"degraded": res.Stats.Degraded,
		},
	}
	if err := g.recorder.InsertRun(ctx, run); err != nil {
		g.logger.Printf("WARN: record run %s: %v", res.RunID, err)
	}
}

// SuggestedFileName is the request's OutputFileName when set, otherwise
// "<template>-<source>-<yyyymmdd>.xlsx".
func SuggestedFileName(req internal.Request, at time.Time) string {
	if name := strings.TrimSpace(req.OutputFileName); name != "" {
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			name += ".xlsx"
		}
		return name
	}
	return fmt.Sprintf("%s-%s-%s.xlsx", templateBase(req.TemplatePath), fileSafe(req.SourceKey), at.Format("20060102"))
}

func templateBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
}
