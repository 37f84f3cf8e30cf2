// Package importer loads comments from a JSON document, creating every
// comment whose id is not stored yet and leaving existing rows untouched.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"commentboard/internal/cache"
	"commentboard/internal/database"
	"commentboard/internal/middleware"
	"commentboard/internal/observability"
	"commentboard/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Options controls how a run commits.
type Options struct {
	// Atomic wraps the whole run in one transaction. Otherwise each created
	// row commits on its own and rows before a failure are kept.
	Atomic bool
}

// Result summarises a successful run.
type Result struct {
	RunID   string
	Total   int
	Created int
	Skipped int
}

type Importer struct {
	db   *gorm.DB
	opts Options
}

func New(db *gorm.DB, opts Options) *Importer {
	return &Importer{db: db, opts: opts}
}

// LoadFile imports the document at path.
func (im *Importer) LoadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open comments file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return im.Load(ctx, f)
}

// Load imports the document read from r. It stops at the first failing record.
func (im *Importer) Load(ctx context.Context, r io.Reader) (res *Result, err error) {
	res = &Result{RunID: uuid.NewString()}
	ctx = middleware.WithImportRun(ctx, res.RunID)
	ctx, span := observability.StartSpan(ctx, "importer.Load",
		attribute.String("import.run_id", res.RunID),
		attribute.Bool("import.atomic", im.opts.Atomic),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()

	records, err := decode(r)
	if err != nil {
		return nil, err
	}
	res.Total = len(records)

	run := func(tx *gorm.DB) error {
		return im.process(ctx, repository.NewCommentRepository(tx), records, res)
	}
	if im.opts.Atomic {
		err = im.db.WithContext(ctx).Transaction(run)
	} else {
		err = run(im.db)
	}
	if err != nil {
		// Rows committed before the failure still need the sequence moved past them.
		if !im.opts.Atomic && res.Created > 0 {
			im.afterPartialRun(context.WithoutCancel(ctx))
		}
		middleware.Logger.ErrorContext(ctx, "comment import failed",
			"created", res.Created, "skipped", res.Skipped, "atomic", im.opts.Atomic, "error", err)
		return nil, err
	}

	if err := database.SyncIDSequence(ctx, im.db, "comments"); err != nil {
		return nil, err
	}
	if err := cache.InvalidateAllComments(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate comment cache", "error", err)
	}

	span.SetAttributes(
		attribute.Int("import.created", res.Created),
		attribute.Int("import.skipped", res.Skipped),
	)
	middleware.Logger.InfoContext(ctx, "comments imported",
		"total", res.Total,
		"created", res.Created,
		"skipped", res.Skipped,
		"elapsed", time.Since(start).String(),
	)
	return res, nil
}

func (im *Importer) afterPartialRun(ctx context.Context) {
	if err := database.SyncIDSequence(ctx, im.db, "comments"); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to sync comment id sequence", "error", err)
	}
	if err := cache.InvalidateAllComments(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate comment cache", "error", err)
	}
}

func decode(r io.Reader) ([]rawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read comments file: %w", err)
	}
	var doc commentsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse comments file: %w", err)
	}
	if doc.Comments == nil {
		return nil, errors.New(`parse comments file: missing "comments" array`)
	}
	return *doc.Comments, nil
}

func (im *Importer) process(ctx context.Context, repo repository.CommentRepository, records []rawRecord, res *Result) error {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, err := rec.id()
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}

		exists, err := repo.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("record %d (id %d): %w", i, id, err)
		}
		if exists {
			res.Skipped++
			observability.ImportRecords.WithLabelValues("skipped").Inc()
			continue
		}

		comment, err := rec.comment(id)
		if err != nil {
			return fmt.Errorf("record %d (id %d): %w", i, id, err)
		}

		created, err := repo.CreateIfAbsent(ctx, comment)
		if err != nil {
			return fmt.Errorf("record %d (id %d): %w", i, id, err)
		}
		if created {
			res.Created++
			observability.ImportRecords.WithLabelValues("created").Inc()
		} else {
			res.Skipped++
			observability.ImportRecords.WithLabelValues("skipped").Inc()
		}
	}
	return nil
}
