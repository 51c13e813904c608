package source

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pricebook/internal"
	"pricebook/internal/config"
)

const (
	KindBaseline  = "baseline"
	KindDraftLive = "draft-live"
	KindVersion   = "version"
)

var (
	draftLiveKey = regexp.MustCompile(`(?i)^draft-live-(\d+)-(\d+)$`)
	versionKey   = regexp.MustCompile(`(?i)^draft-(\d+)$`)
)

type RegistryOptions struct {
	Now                Clock
	Logger             *log.Logger
	BaselineTemplateID int64
}

// Registry maps source keys to adapters. Configured entries are checked
// first, then the built-in key shapes: "sql" or "baseline",
// "draft-live-<draftId>-<templateId>" and "draft-<versionId>".
type Registry struct {
	store   Store
	opts    RegistryOptions
	entries map[string]config.SourceEntry
}

func NewRegistry(store Store, entries []config.SourceEntry, opts RegistryOptions) (*Registry, error) {
	opts.Now = defaultClock(opts.Now)
	opts.Logger = defaultLogger(opts.Logger)
	r := &Registry{store: store, opts: opts, entries: map[string]config.SourceEntry{}}
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Key))
		if key == "" {
			return nil, fmt.Errorf("source entry without key")
		}
		if _, dup := r.entries[key]; dup {
			return nil, fmt.Errorf("duplicate source key %q", e.Key)
		}
		switch strings.ToLower(e.Kind) {
		case KindBaseline:
		case KindDraftLive:
			if e.DraftID == 0 || e.TemplateID == 0 {
				return nil, fmt.Errorf("source %q: draft-live needs draft_id and template_id", e.Key)
			}
		case KindVersion:
			if e.VersionID == 0 {
				return nil, fmt.Errorf("source %q: version needs version_id", e.Key)
			}
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", e.Key, e.Kind)
		}
		r.entries[key] = e
	}
	return r, nil
}

// Lookup resolves key case-insensitively. Unknown keys return an error
// wrapping internal.ErrUnknownSource.
func (r *Registry) Lookup(key string) (RowSource, error) {
	norm := strings.ToLower(strings.TrimSpace(key))
	if e, ok := r.entries[norm]; ok {
		return r.build(e), nil
	}

	switch {
	case norm == "sql" || norm == KindBaseline:
		return NewBaseline(r.store, norm, r.opts.BaselineTemplateID, r.opts.Now, r.opts.Logger), nil
	case draftLiveKey.MatchString(norm):
		m := draftLiveKey.FindStringSubmatch(norm)
		draftID, err1 := strconv.ParseInt(m[1], 10, 64)
		templateID, err2 := strconv.ParseInt(m[2], 10, 64)
		if err1 == nil && err2 == nil {
			return NewDraftLive(r.store, draftID, templateID, r.opts.Now, r.opts.Logger), nil
		}
	case versionKey.MatchString(norm):
		m := versionKey.FindStringSubmatch(norm)
		if versionID, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return NewVersion(r.store, versionID, r.opts.Logger), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", internal.ErrUnknownSource, key)
}

func (r *Registry) build(e config.SourceEntry) RowSource {
	switch strings.ToLower(e.Kind) {
	case KindDraftLive:
		return NewDraftLive(r.store, e.DraftID, e.TemplateID, r.opts.Now, r.opts.Logger)
	case KindVersion:
		return NewVersion(r.store, e.VersionID, r.opts.Logger)
	default:
		templateID := e.TemplateID
		if templateID == 0 {
			templateID = r.opts.BaselineTemplateID
		}
		return NewBaseline(r.store, e.Key, templateID, r.opts.Now, r.opts.Logger)
	}
}

// Entries lists the configured sources sorted by key.
func (r *Registry) Entries() []config.SourceEntry {
	out := make([]config.SourceEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Key) < strings.ToLower(out[j].Key) })
	return out
}
