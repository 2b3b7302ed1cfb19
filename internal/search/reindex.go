package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"go.uber.org/zap"
)

const reindexBatchSize = 200

// indexTarget is the part of Client the reindexer drives
type indexTarget interface {
	EnsureIndex(ctx context.Context) error
	DeleteIndex(ctx context.Context) error
	CheckIndexVersion(ctx context.Context) (bool, error)
	BulkIndex(ctx context.Context, docs []Document) (int, error)
}

// ReindexReport counts what a rebuild wrote
type ReindexReport struct {
	Indexed  map[models.ContentKind]int `json:"indexed"`
	Failed   int                        `json:"failed"`
	Duration time.Duration              `json:"duration"`
}

// Reindexer rebuilds the content index from the database. Started as a
// background loop it rebuilds whenever the index mapping is stale.
type Reindexer struct {
	target   indexTarget
	src      Sources
	interval time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewReindexer creates a reindexer writing to client
func NewReindexer(client *Client, src Sources, interval time.Duration) *Reindexer {
	return newReindexer(client, src, interval)
}

func newReindexer(target indexTarget, src Sources, interval time.Duration) *Reindexer {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reindexer{
		target:   target,
		src:      src,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Rebuild writes every published row into the index. With recreate the index
// is dropped and created from the current mapping first.
func (r *Reindexer) Rebuild(ctx context.Context, recreate bool) (*ReindexReport, error) {
	start := time.Now()
	if recreate {
		if err := r.target.DeleteIndex(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.target.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	report := &ReindexReport{Indexed: map[models.ContentKind]int{}}
	write := func(kind models.ContentKind, docs []Document) error {
		published := docs[:0]
		for _, d := range docs {
			if d.Published {
				published = append(published, d)
			}
		}
		failed, err := r.target.BulkIndex(ctx, published)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", kind, err)
		}
		report.Indexed[kind] += len(published) - failed
		report.Failed += failed
		return nil
	}

	if err := eachCatalog(ctx, r.src.Articles, models.KindArticle, ArticleDoc, write); err != nil {
		return nil, err
	}
	if err := eachCatalog(ctx, r.src.Tools, models.KindTool, ToolDoc, write); err != nil {
		return nil, err
	}
	if err := eachCatalog(ctx, r.src.Templates, models.KindTemplate, TemplateDoc, write); err != nil {
		return nil, err
	}
	if err := eachCatalog(ctx, r.src.Guides, models.KindGuide, GuideDoc, write); err != nil {
		return nil, err
	}
	if err := eachCatalog(ctx, r.src.Niches, models.KindNiche, NicheDoc, write); err != nil {
		return nil, err
	}
	if r.src.Forum != nil {
		err := r.src.Forum.Each(ctx, reindexBatchSize, func(posts []models.ForumPost) error {
			docs := make([]Document, 0, len(posts))
			for i := range posts {
				docs = append(docs, ForumPostDoc(&posts[i]))
			}
			return write(models.KindForumPost, docs)
		})
		if err != nil {
			return nil, err
		}
	}

	if err := InvalidateCache(ctx); err != nil {
		logger.Log.Debug("Failed to invalidate search cache", zap.Error(err))
	}

	report.Duration = time.Since(start)
	logger.Log.Info("Search index rebuilt",
		zap.Any("indexed", report.Indexed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func eachCatalog[T repository.CatalogEntry](ctx context.Context, repo repository.CatalogRepository[T], kind models.ContentKind, toDoc func(*T) Document, write func(models.ContentKind, []Document) error) error {
	if repo == nil {
		return nil
	}
	return repo.Each(ctx, reindexBatchSize, func(batch []T) error {
		docs := make([]Document, 0, len(batch))
		for i := range batch {
			docs = append(docs, toDoc(&batch[i]))
		}
		return write(kind, docs)
	})
}

// Start begins the periodic version check loop
func (r *Reindexer) Start() {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.mu.Unlock()

	logger.Log.Info("Starting search index maintenance", zap.Duration("interval", r.interval))

	r.wg.Add(1)
	go r.loop()
}

// Stop waits for a running check to finish
func (r *Reindexer) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()
	logger.Log.Info("Search index maintenance stopped")
}

func (r *Reindexer) loop() {
	defer r.wg.Done()

	// Run once immediately on startup
	r.checkAndRebuild()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.checkAndRebuild()
		}
	}
}

func (r *Reindexer) checkAndRebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stale, err := r.target.CheckIndexVersion(ctx)
	if err != nil {
		logger.Log.Warn("Failed to check search index version", zap.Error(err))
		return
	}
	if !stale {
		return
	}

	logger.Log.Info("Search index mapping is stale, rebuilding", zap.Int("version", IndexVersion))
	if _, err := r.Rebuild(ctx, true); err != nil {
		logger.Log.Error("Search index rebuild failed", zap.Error(err))
	}
}
