package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrUnknownEntity = errors.New("unknown import entity")

// errDryRun rolls back the transaction a dry run writes into
var errDryRun = errors.New("dry run")

func errMissing(field string) error {
	return fmt.Errorf("%s: required", field)
}

// Syncer receives the search document of every written row
type Syncer interface {
	Sync(ctx context.Context, doc search.Document)
}

// Options describes one import run
type Options struct {
	Entity   string
	Format   Format
	Filename string
	DryRun   bool
	UserID   string
}

// RowError reports why a row was skipped
type RowError = models.ImportRowError

// Report summarises an import run
type Report struct {
	RunID      string     `json:"run_id,omitempty"`
	Entity     string     `json:"entity"`
	Format     Format     `json:"format"`
	Filename   string     `json:"filename,omitempty"`
	DryRun     bool       `json:"dry_run"`
	Rows       int        `json:"rows"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Errors     []RowError `json:"errors"`
	DurationMS int64      `json:"duration_ms"`
}

func (r *Report) fail(row int, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, RowError{Row: row, Message: err.Error()})
}

// Importer upserts catalog rows
type Importer struct {
	db     *gorm.DB
	syncer Syncer
	now    func() time.Time
}

// New creates an Importer; syncer may be nil
func New(db *gorm.DB, syncer Syncer) *Importer {
	return &Importer{db: db, syncer: syncer, now: time.Now}
}

type runner func(ctx context.Context, im *Importer, rows []Row, opts Options, rep *Report) error

var runners = map[string]runner{
	EntityTools: func(ctx context.Context, im *Importer, rows []Row, opts Options, rep *Report) error {
		return runSpec(ctx, im, toolSpec, rows, opts, rep)
	},
	EntityNiches: func(ctx context.Context, im *Importer, rows []Row, opts Options, rep *Report) error {
		return runSpec(ctx, im, nicheSpec, rows, opts, rep)
	},
	EntityTemplates: func(ctx context.Context, im *Importer, rows []Row, opts Options, rep *Report) error {
		return runSpec(ctx, im, templateSpec, rows, opts, rep)
	},
	EntityArticles: func(ctx context.Context, im *Importer, rows []Row, opts Options, rep *Report) error {
		return runSpec(ctx, im, articleSpec, rows, opts, rep)
	},
	EntityGuides: func(ctx context.Context, im *Importer, rows []Row, opts Options, rep *Report) error {
		return runSpec(ctx, im, guideSpec, rows, opts, rep)
	},
}

// Run parses r and upserts its rows. Row-level problems are collected in
// the report; an error is returned only when the file or the database
// cannot be used at all. Every run, dry or not, is stored as an ImportRun.
func (im *Importer) Run(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	run, ok := runners[opts.Entity]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, opts.Entity)
	}

	start := im.now()
	rows, err := ParseRows(r, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}

	rep := &Report{
		Entity:   opts.Entity,
		Format:   opts.Format,
		Filename: opts.Filename,
		DryRun:   opts.DryRun,
		Rows:     len(rows),
		Errors:   []RowError{},
	}

	if err := im.execute(ctx, run, rows, opts, rep); err != nil {
		return nil, err
	}
	rep.DurationMS = im.now().Sub(start).Milliseconds()

	if err := im.record(ctx, rep, opts.UserID); err != nil {
		logger.Log.Warn("Failed to store import run", zap.String("entity", opts.Entity), zap.Error(err))
	}

	m := metrics.Get()
	m.ImportRunsTotal.WithLabelValues(opts.Entity, strconv.FormatBool(opts.DryRun)).Inc()
	m.ImportRowsTotal.WithLabelValues(opts.Entity, "inserted").Add(float64(rep.Inserted))
	m.ImportRowsTotal.WithLabelValues(opts.Entity, "updated").Add(float64(rep.Updated))
	m.ImportRowsTotal.WithLabelValues(opts.Entity, "skipped").Add(float64(rep.Skipped))

	logger.Log.Info("Import finished",
		zap.String("entity", opts.Entity),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("rows", rep.Rows),
		zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated),
		zap.Int("skipped", rep.Skipped),
		logger.WithDuration(time.Duration(rep.DurationMS)*time.Millisecond),
		logger.WithUserID(opts.UserID))

	return rep, nil
}

// execute applies the rows. A dry run performs the same writes inside a
// transaction that is always rolled back, so rows later in the file see the
// ones before them exactly as in a real run.
func (im *Importer) execute(ctx context.Context, run runner, rows []Row, opts Options, rep *Report) error {
	if !opts.DryRun {
		return run(ctx, im, rows, opts, rep)
	}
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := run(ctx, im.withDB(tx), rows, opts, rep); err != nil {
			return err
		}
		return errDryRun
	})
	if errors.Is(err, errDryRun) {
		return nil
	}
	return err
}

func (im *Importer) withDB(db *gorm.DB) *Importer {
	return &Importer{db: db, syncer: im.syncer, now: im.now}
}

func (im *Importer) record(ctx context.Context, rep *Report, userID string) error {
	run := &models.ImportRun{
		Entity:   rep.Entity,
		Filename: rep.Filename,
		Format:   string(rep.Format),
		DryRun:   rep.DryRun,
		Inserted: rep.Inserted,
		Updated:  rep.Updated,
		Skipped:  rep.Skipped,
		Errors:   models.ImportRowErrors(rep.Errors),
		UserID:   userID,
	}
	if err := im.db.WithContext(ctx).Create(run).Error; err != nil {
		return err
	}
	rep.RunID = run.ID
	return nil
}

// Runs lists stored import runs, newest first
func (im *Importer) Runs(ctx context.Context, limit, offset int) ([]models.ImportRun, int64, error) {
	var total int64
	q := im.db.WithContext(ctx).Model(&models.ImportRun{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	runs := []models.ImportRun{}
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&runs).Error
	return runs, total, err
}

// pending is a validated row waiting to be written
type pending struct {
	row          int
	f            fields
	externalID   string
	slug         string
	explicitSlug bool
}

func runSpec[T repository.CatalogEntry](ctx context.Context, im *Importer, spec entitySpec[T], rows []Row, opts Options, rep *Report) error {
	var order []string
	latest := make(map[string]pending, len(rows))

	for _, row := range rows {
		f := canonicalize(row.Values, spec.aliases)
		title := f.text(spec.titleKey)
		if title == "" {
			rep.fail(row.Number, errMissing(spec.titleKey))
			continue
		}

		p := pending{row: row.Number, f: f, externalID: f.text("external_id")}
		if explicit := util.Slugify(f.text("slug")); explicit != "" {
			p.slug, p.explicitSlug = explicit, true
		} else {
			p.slug = util.Slugify(title)
		}
		if p.slug == "" {
			rep.fail(row.Number, fmt.Errorf("%s %q does not produce a slug", spec.titleKey, title))
			continue
		}

		key := "slug:" + p.slug
		if p.externalID != "" {
			key = "external_id:" + p.externalID
		}
		if _, dup := latest[key]; dup {
			// the earlier row is superseded
			rep.Skipped++
		} else {
			order = append(order, key)
		}
		latest[key] = p
	}

	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := latest[key]
		var entry *T
		var isNew bool
		// each row commits or fails on its own
		err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			entry, isNew, err = upsert(ctx, im.withDB(tx), spec, p, opts)
			return err
		})
		if err != nil {
			if isDatabaseDown(err) {
				return err
			}
			rep.fail(p.row, err)
			continue
		}
		if isNew {
			rep.Inserted++
		} else {
			rep.Updated++
		}
		if !opts.DryRun && im.syncer != nil {
			im.syncer.Sync(ctx, spec.doc(entry))
		}
	}
	return nil
}

func upsert[T repository.CatalogEntry](ctx context.Context, im *Importer, spec entitySpec[T], p pending, opts Options) (*T, bool, error) {
	db := im.db.WithContext(ctx)

	var entry T
	found := false
	if p.externalID != "" {
		err := db.Unscoped().Where("external_id = ?", p.externalID).First(&entry).Error
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, false, err
		}
	}
	if !found {
		var bySlug T
		err := db.Unscoped().Where("slug = ?", p.slug).First(&bySlug).Error
		switch {
		case err == nil:
			other := spec.identify(&bySlug).externalID
			if p.externalID != "" && *other != nil && **other != p.externalID {
				return nil, false, fmt.Errorf("slug %q already belongs to external id %q", p.slug, **other)
			}
			entry, found = bySlug, true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, false, err
		}
	}

	if !found {
		spec.defaults(&entry)
	}

	a := &applier{f: p.f}
	spec.apply(a, &entry)
	if a.err != nil {
		return nil, false, a.err
	}

	id := spec.identify(&entry)
	if !found || p.explicitSlug {
		*id.slug = p.slug
	}
	if p.externalID != "" {
		ext := p.externalID
		*id.externalID = &ext
	}
	// re-importing a deleted row restores it
	id.model.DeletedAt = gorm.DeletedAt{}

	if err := spec.finish(&entry, im.now(), !found, opts.UserID); err != nil {
		return nil, false, err
	}

	var err error
	if found {
		err = db.Unscoped().Save(&entry).Error
	} else {
		err = db.Create(&entry).Error
	}
	if err != nil {
		return nil, false, fmt.Errorf("write: %w", err)
	}
	return &entry, !found, nil
}

// isDatabaseDown separates connection failures, which abort the run, from
// per-row constraint errors
func isDatabaseDown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gorm.ErrInvalidDB)
}
