// Package enrichment runs the resumable, concurrent enrichment loop that turns
// raw catalogue rows into checkpointed EnrichmentResults.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DhruvParmar051/book-recommendation-system/internal/identity"
	"github.com/DhruvParmar051/book-recommendation-system/internal/metrics"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/DhruvParmar051/book-recommendation-system/internal/sources"
	"github.com/DhruvParmar051/book-recommendation-system/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is the orchestrator lifecycle stage.
type State int32

const (
	StateInit State = iota
	StateDraining
	StateFlushing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDraining:
		return "draining"
	case StateFlushing:
		return "flushing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config tunes a run.
type Config struct {
	// Concurrency bounds the number of rows looked up at once.
	Concurrency int
	// GracePeriod is how long in-flight lookups may keep running after the
	// run context is cancelled.
	GracePeriod time.Duration
	// LogEvery controls progress logging; zero disables it.
	LogEvery int
}

// DefaultConfig returns the settings used by the CLI when nothing is set.
func DefaultConfig() Config {
	return Config{
		Concurrency: 10,
		GracePeriod: 10 * time.Second,
		LogEvery:    100,
	}
}

// Summary describes what a run did.
type Summary struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	TotalRows   int            `json:"total_rows" yaml:"total_rows"`
	EmptyTitle  int            `json:"empty_title" yaml:"empty_title"`
	AlreadySeen int            `json:"already_seen" yaml:"already_seen"`
	Duplicates  int            `json:"duplicates" yaml:"duplicates"`
	Scheduled   int            `json:"scheduled" yaml:"scheduled"`
	Found       int            `json:"found" yaml:"found"`
	Missing     int            `json:"missing" yaml:"missing"`
	Abandoned   int            `json:"abandoned" yaml:"abandoned"`
	Interrupted bool           `json:"interrupted" yaml:"interrupted"`
	Methods     map[string]int `json:"methods" yaml:"methods"`
	Checkpoint  int            `json:"checkpoint_records" yaml:"checkpoint_records"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
}

// Orchestrator enriches rows against a chain of source adapters and records
// one result per book key in a checkpoint store. An Orchestrator is meant for
// a single Run.
type Orchestrator struct {
	store    *storage.CheckpointStore
	adapters []sources.Adapter
	cfg      Config

	state atomic.Int32

	mu      sync.Mutex
	summary Summary
}

// New creates an orchestrator. Adapters are tried in the order given.
func New(store *storage.CheckpointStore, adapters []sources.Adapter, cfg Config) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaults.GracePeriod
	}
	return &Orchestrator{
		store:    store,
		adapters: adapters,
		cfg:      cfg,
	}
}

// State returns the current lifecycle stage.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

type workItem struct {
	row models.RawRecord
	key string
}

// Run enriches rows until every unseen book key has a result or ctx is
// cancelled. The checkpoint is always flushed before Run returns, whichever
// way it exits. Only a corrupt checkpoint or a failed final flush is
// returned as an error.
func (o *Orchestrator) Run(ctx context.Context, rows []models.RawRecord) (summary Summary, err error) {
	start := time.Now()
	o.state.Store(int32(StateInit))
	o.summary = Summary{
		RunID:     uuid.NewString(),
		TotalRows: len(rows),
		Methods:   make(map[string]int),
	}
	log := slog.With("run_id", o.summary.RunID)

	existing, _, err := o.store.Load()
	if err != nil {
		o.state.Store(int32(StateDone))
		return o.summary, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	defer func() {
		o.state.Store(int32(StateFlushing))
		if flushErr := o.store.Flush(); flushErr != nil {
			log.Error("Final checkpoint flush failed", "path", o.store.Path(), "err", flushErr)
			err = errors.Join(err, fmt.Errorf("failed to flush checkpoint: %w", flushErr))
		}
		o.state.Store(int32(StateDone))

		o.mu.Lock()
		o.summary.Checkpoint = o.store.Len()
		o.summary.Duration = time.Since(start)
		summary = o.summary
		o.mu.Unlock()
		log.Info("Enrichment finished",
			"found", summary.Found,
			"missing", summary.Missing,
			"abandoned", summary.Abandoned,
			"interrupted", summary.Interrupted,
			"checkpoint_records", summary.Checkpoint,
			"duration", summary.Duration)
	}()

	work := o.plan(rows, existing)
	log.Info("Enrichment started",
		"rows", len(rows),
		"already_seen", o.summary.AlreadySeen,
		"duplicates", o.summary.Duplicates,
		"remaining", len(work),
		"workers", o.cfg.Concurrency)

	o.state.Store(int32(StateDraining))

	// Lookups outlive ctx by at most GracePeriod.
	lookupCtx, cancelLookups := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelLookups()
	stop := context.AfterFunc(ctx, func() {
		log.Warn("Interrupted, draining in-flight lookups", "grace_period", o.cfg.GracePeriod)
		time.AfterFunc(o.cfg.GracePeriod, cancelLookups)
	})
	defer stop()

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Concurrency)
	for _, item := range work {
		if ctx.Err() != nil {
			break
		}
		o.mu.Lock()
		o.summary.Scheduled++
		o.mu.Unlock()
		g.Go(func() error {
			o.process(ctx, lookupCtx, log, item)
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	o.summary.Interrupted = ctx.Err() != nil && (o.summary.Abandoned > 0 || o.summary.Scheduled < len(work))
	o.mu.Unlock()
	return o.summary, nil
}

// plan selects the rows to look up: non-empty title, book key not already
// in the checkpoint, first occurrence within the input. Rows carrying a valid
// ISBN collapse on the ISBN alone, against both earlier rows and existing
// checkpoint results.
func (o *Orchestrator) plan(rows []models.RawRecord, existing []models.EnrichmentResult) []workItem {
	scheduled := make(map[string]struct{}, len(rows))
	isbns := make(map[string]struct{}, len(existing)+len(rows))
	for _, r := range existing {
		if r.ISBN == nil {
			continue
		}
		if isbn := identity.NormalizeISBN(*r.ISBN); isbn != "" {
			isbns[isbn] = struct{}{}
		}
	}

	work := make([]workItem, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Title) == "" {
			o.summary.EmptyTitle++
			continue
		}
		key := identity.BookKey(row.ISBN, row.Title)
		if o.store.Seen(key) {
			o.summary.AlreadySeen++
			continue
		}
		if _, dup := scheduled[key]; dup {
			o.summary.Duplicates++
			continue
		}
		isbn := identity.NormalizeISBN(row.ISBN)
		if isbn != "" {
			if _, dup := isbns[isbn]; dup {
				o.summary.Duplicates++
				continue
			}
			isbns[isbn] = struct{}{}
		}
		scheduled[key] = struct{}{}
		work = append(work, workItem{row: row, key: key})
	}
	return work
}

// process looks one row up and records the result. ctx stops further adapter
// queries; lookupCtx bounds the queries themselves. A row whose lookups were
// cut short is not recorded so the next run retries it.
func (o *Orchestrator) process(ctx, lookupCtx context.Context, log *slog.Logger, item workItem) {
	if o.store.Seen(item.key) {
		return
	}

	q := sources.Query{
		Title:  strings.TrimSpace(item.row.Title),
		Author: strings.TrimSpace(item.row.Author),
		ISBN:   identity.NormalizeISBN(item.row.ISBN),
	}

	var match *models.Match
	for _, a := range o.adapters {
		if ctx.Err() != nil {
			o.abandon(log, item)
			return
		}
		match = a.Search(lookupCtx, q)
		if match != nil {
			break
		}
		if lookupCtx.Err() != nil {
			o.abandon(log, item)
			return
		}
	}

	result := BuildResult(item.row, item.key, match)
	appended, flushed, err := o.store.Append(result)
	if err != nil {
		// The next periodic or final flush retries the write.
		log.Error("Checkpoint flush failed", "path", o.store.Path(), "err", err)
	}
	if !appended {
		return
	}

	method := ""
	if result.MatchMethod != nil {
		method = *result.MatchMethod
	}
	metrics.EnrichmentResults.WithLabelValues(string(result.Status), method).Inc()

	o.mu.Lock()
	if result.Status == models.StatusFound {
		o.summary.Found++
		o.summary.Methods[method]++
	} else {
		o.summary.Missing++
	}
	done := o.summary.Found + o.summary.Missing
	scheduled := o.summary.Scheduled
	o.mu.Unlock()

	if flushed {
		log.Info("Checkpoint saved", "records", o.store.Len())
	}
	if o.cfg.LogEvery > 0 && done%o.cfg.LogEvery == 0 {
		log.Info("Progress",
			"done", done,
			"scheduled", scheduled,
			"status", result.Status,
			"title", truncate(result.Title, 50))
	}
}

func (o *Orchestrator) abandon(log *slog.Logger, item workItem) {
	o.mu.Lock()
	o.summary.Abandoned++
	o.mu.Unlock()
	log.Debug("Lookup abandoned", "book_key", item.key)
}

// BuildResult assembles the result for row. A nil match yields a MISSING
// result whose source fields are all nil; local catalogue fields are carried
// through either way.
func BuildResult(row models.RawRecord, key string, match *models.Match) models.EnrichmentResult {
	recordID := row.RecordID
	if recordID == "" {
		recordID = identity.RecordID(row.Title, row.Author, row.ISBN)
	}

	result := models.EnrichmentResult{
		RecordID:       recordID,
		BookKey:        key,
		Status:         models.StatusMissing,
		AccessionNo:    row.AccessionNo,
		ClassNoBookNo:  row.ClassNoBookNo,
		Pages:          models.StringPtr(strings.TrimSpace(row.Pages)),
		Title:          strings.TrimSpace(row.Title),
		OriginalAuthor: strings.TrimSpace(row.Author),
		ISBN:           models.StringPtr(identity.NormalizeISBN(row.ISBN)),
	}
	if match == nil {
		return result
	}

	method := match.Method
	result.Status = models.StatusFound
	result.MatchMethod = &method
	result.Authors = match.Authors
	result.Subjects = match.Subjects
	result.Summary = match.Summary
	result.Publisher = match.Publisher
	result.Year = match.Year
	if result.Pages == nil {
		result.Pages = match.Pages
	}
	return result
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
