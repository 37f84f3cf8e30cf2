// Package seed provides helpers to create demo comments for local development
// and tests.
package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"commentboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// SeedOptions tunes generated data.
type SeedOptions struct {
	// MaxDays bounds how far back comment dates are spread.
	MaxDays int
	// ImageRatio is the share of comments (0..1) that get an image URL.
	ImageRatio float64
	// Seed makes generation deterministic when non-zero.
	Seed int64
}

// Factory builds comments and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  SeedOptions
	faker *gofakeit.Faker
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.ImageRatio < 0 || opts.ImageRatio > 1 {
		opts.ImageRatio = 0.3
	}
	faker := gofakeit.New(opts.Seed)
	return &Factory{db: db, opts: opts, faker: faker}
}

// BuildComment constructs a comment without persisting it.
func (f *Factory) BuildComment(overrides ...func(*models.Comment)) *models.Comment {
	now := time.Now().UTC()
	comment := &models.Comment{
		Author: f.faker.Name(),
		Text:   f.faker.Paragraph(1, 3, 12, " "),
		Date:   f.faker.DateRange(now.AddDate(0, 0, -f.opts.MaxDays), now).UTC().Truncate(time.Second),
		Likes:  f.faker.Number(0, 250),
	}
	if f.faker.Float64Range(0, 1) < f.opts.ImageRatio {
		img := fmt.Sprintf("https://picsum.photos/seed/%s/640/480", f.faker.UUID())
		comment.Image = &img
	}

	for _, override := range overrides {
		override(comment)
	}
	return comment
}

// CreateComments persists n generated comments in batches and returns them.
func (f *Factory) CreateComments(n int) ([]*models.Comment, error) {
	if n <= 0 {
		return nil, nil
	}
	comments := make([]*models.Comment, 0, n)
	for i := 0; i < n; i++ {
		comments = append(comments, f.BuildComment())
	}
	if err := f.db.CreateInBatches(comments, 100).Error; err != nil {
		return nil, fmt.Errorf("create comments: %w", err)
	}
	return comments, nil
}

// ClearComments removes every stored comment.
func (f *Factory) ClearComments() error {
	return f.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Comment{}).Error
}

type exportRecord struct {
	ID     uint    `json:"id"`
	Author string  `json:"author"`
	Text   string  `json:"text"`
	Date   string  `json:"date"`
	Likes  int     `json:"likes"`
	Image  *string `json:"image"`
}

// WriteImportFile writes n generated comments, numbered from firstID, in the
// document shape read by the importer.
func (f *Factory) WriteImportFile(w io.Writer, firstID uint, n int) error {
	records := make([]exportRecord, 0, n)
	for i := 0; i < n; i++ {
		c := f.BuildComment()
		records = append(records, exportRecord{
			ID:     firstID + uint(i),
			Author: c.Author,
			Text:   c.Text,
			Date:   c.Date.Format(time.RFC3339),
			Likes:  c.Likes,
			Image:  c.Image,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"comments": records})
}
