package seed

import (
	"bytes"
	"context"
	"testing"

	"commentboard/internal/importer"
	"commentboard/internal/models"
	"commentboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildComment(t *testing.T) {
	f := NewFactory(nil, SeedOptions{Seed: 7, ImageRatio: 1})

	c := f.BuildComment()
	assert.NotEmpty(t, c.Author)
	assert.NotEmpty(t, c.Text)
	assert.False(t, c.Date.IsZero())
	assert.GreaterOrEqual(t, c.Likes, 0)
	require.NotNil(t, c.Image)

	c = f.BuildComment(func(c *models.Comment) { c.Author = "Fixed" })
	assert.Equal(t, "Fixed", c.Author)
}

func TestBuildComment_Deterministic(t *testing.T) {
	a := NewFactory(nil, SeedOptions{Seed: 42}).BuildComment()
	b := NewFactory(nil, SeedOptions{Seed: 42}).BuildComment()
	assert.Equal(t, a.Author, b.Author)
	assert.Equal(t, a.Text, b.Text)
}

func TestCreateAndClearComments(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := NewFactory(db, SeedOptions{Seed: 1})

	comments, err := f.CreateComments(25)
	require.NoError(t, err)
	require.Len(t, comments, 25)
	for _, c := range comments {
		assert.NotZero(t, c.ID)
	}

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(25), count)

	require.NoError(t, f.ClearComments())
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWriteImportFile_IsImportable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFactory(nil, SeedOptions{Seed: 3, ImageRatio: 0.5}).WriteImportFile(&buf, 100, 10))

	db := testutil.NewSQLiteDB(t)
	res, err := importer.New(db, importer.Options{}).Load(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Created)

	var first models.Comment
	require.NoError(t, db.First(&first, 100).Error)
	assert.NotEmpty(t, first.Text)
}
