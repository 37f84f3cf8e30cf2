package importer

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"commentboard/internal/cache"
	"commentboard/internal/models"
	"commentboard/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const sampleDoc = `{
  "comments": [
    {"id": 1, "author": "Admin", "text": "First!", "date": "2019-01-03T10:00:00Z", "likes": 3, "image": "https://example.com/1.png"},
    {"id": "2", "author": "Jane", "text": "Second", "date": "2019-01-04", "likes": 0, "image": null},
    {"id": 3, "author": "Bob", "text": "Third", "date": "01/05/2019 08:30:00", "likes": 12, "image": ""}
  ]
}`

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "comments.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func allComments(t *testing.T, db *gorm.DB) []models.Comment {
	t.Helper()
	var comments []models.Comment
	require.NoError(t, db.Order("id asc").Find(&comments).Error)
	return comments
}

func TestLoadFile_CreatesEveryNewRecord(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	im := New(db, Options{})

	res, err := im.LoadFile(context.Background(), writeDoc(t, sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.NotEmpty(t, res.RunID)

	comments := allComments(t, db)
	require.Len(t, comments, 3)

	assert.Equal(t, uint(1), comments[0].ID)
	assert.Equal(t, "Admin", comments[0].Author)
	assert.Equal(t, "First!", comments[0].Text)
	assert.True(t, comments[0].Date.Equal(time.Date(2019, 1, 3, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, comments[0].Likes)
	require.NotNil(t, comments[0].Image)
	assert.Equal(t, "https://example.com/1.png", *comments[0].Image)

	assert.Equal(t, uint(2), comments[1].ID)
	assert.Nil(t, comments[1].Image)
	assert.True(t, comments[1].Date.Equal(time.Date(2019, 1, 4, 0, 0, 0, 0, time.UTC)))

	assert.True(t, comments[2].Date.Equal(time.Date(2019, 1, 5, 8, 30, 0, 0, time.UTC)))
	require.NotNil(t, comments[2].Image)
	assert.Equal(t, "", *comments[2].Image)
}

func TestLoadFile_RerunCreatesNothing(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	im := New(db, Options{})
	path := writeDoc(t, sampleDoc)

	_, err := im.LoadFile(context.Background(), path)
	require.NoError(t, err)
	before := allComments(t, db)

	res, err := im.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 3, res.Skipped)

	after := allComments(t, db)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Text, after[i].Text)
		assert.True(t, before[i].UpdatedAt.Equal(after[i].UpdatedAt))
	}
}

func TestLoadFile_ExistingRowsAreNeverModified(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	testutil.InsertComments(t, db, &models.Comment{ID: 2, Author: "Original", Text: "keep me", Likes: 99})

	// The stored id is skipped before any other field is looked at.
	doc := `{"comments": [
		{"id": 2, "author": "Changed", "text": "overwrite", "date": "garbage", "likes": -5},
		{"id": 4, "author": "New", "text": "fresh", "date": "2020-02-02", "likes": 1, "image": null}
	]}`

	res, err := New(db, Options{}).LoadFile(context.Background(), writeDoc(t, doc))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)

	comments := allComments(t, db)
	require.Len(t, comments, 2)
	assert.Equal(t, "Original", comments[0].Author)
	assert.Equal(t, "keep me", comments[0].Text)
	assert.Equal(t, 99, comments[0].Likes)
	assert.Equal(t, uint(4), comments[1].ID)
}

const badDateDoc = `{"comments": [
	{"id": 1, "author": "a", "text": "one", "date": "2021-01-01", "likes": 0, "image": null},
	{"id": 2, "author": "b", "text": "two", "date": "not a date", "likes": 0, "image": null},
	{"id": 3, "author": "c", "text": "three", "date": "2021-01-03", "likes": 0, "image": null}
]}`

func TestLoadFile_BadDateFailsFast(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	_, err := New(db, Options{}).LoadFile(context.Background(), writeDoc(t, badDateDoc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1 (id 2)")

	comments := allComments(t, db)
	require.Len(t, comments, 1)
	assert.Equal(t, uint(1), comments[0].ID)
}

func TestLoadFile_AtomicRollsBackOnFailure(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	_, err := New(db, Options{Atomic: true}).LoadFile(context.Background(), writeDoc(t, badDateDoc))
	require.Error(t, err)
	assert.Empty(t, allComments(t, db))
}

func TestLoadFile_AtomicSuccess(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	res, err := New(db, Options{Atomic: true}).LoadFile(context.Background(), writeDoc(t, sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Len(t, allComments(t, db), 3)
}

func TestLoadFile_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"malformed json", `{"comments": [`, "parse comments file"},
		{"missing comments key", `{"items": []}`, `missing "comments" array`},
		{"missing field", `{"comments": [{"id": 1, "author": "a", "text": "t", "date": "2020-01-01", "likes": 0}]}`, `missing field "image"`},
		{"missing id", `{"comments": [{"author": "a"}]}`, `record 0: missing field "id"`},
		{"fractional id", `{"comments": [{"id": 1.5}]}`, "invalid id"},
		{"negative id", `{"comments": [{"id": -1}]}`, "invalid id"},
		{"non-numeric id", `{"comments": [{"id": "abc"}]}`, "invalid id"},
		{"null author", `{"comments": [{"id": 1, "author": null, "text": "t", "date": "2020-01-01", "likes": 0, "image": null}]}`, `"author" must not be null`},
		{"string likes", `{"comments": [{"id": 1, "author": "a", "text": "t", "date": "2020-01-01", "likes": "many", "image": null}]}`, `"likes" must be an integer`},
		{"negative likes", `{"comments": [{"id": 1, "author": "a", "text": "t", "date": "2020-01-01", "likes": -2, "image": null}]}`, `"likes" must be zero or greater`},
		{"long author", `{"comments": [{"id": 1, "author": "` + strings.Repeat("a", models.MaxAuthorLen+1) + `", "text": "t", "date": "2020-01-01", "likes": 0, "image": null}]}`, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewSQLiteDB(t)
			_, err := New(db, Options{}).LoadFile(context.Background(), writeDoc(t, tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, allComments(t, db))
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	_, err := New(db, Options{}).LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyArray(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	res, err := New(db, Options{}).Load(context.Background(), strings.NewReader(`{"comments": []}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestLoad_CancelledContext(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(db, Options{}).Load(ctx, strings.NewReader(sampleDoc))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_InvalidatesCommentCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	require.NoError(t, mr.Set(cache.CommentsListKey, "[]"))
	require.NoError(t, mr.Set(cache.CommentKey(1), "{}"))

	db := testutil.NewSQLiteDB(t)
	_, err := New(db, Options{}).Load(context.Background(), strings.NewReader(sampleDoc))
	require.NoError(t, err)

	assert.False(t, mr.Exists(cache.CommentsListKey))
	assert.False(t, mr.Exists(cache.CommentKey(1)))
}

func TestLoad_PartialRunSyncsSequence(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	doc := `{"comments": [
		{"id": 500, "author": "a", "text": "kept", "date": "2021-01-01", "likes": 0, "image": null},
		{"id": 501, "author": "b", "text": "broken", "date": "garbage", "likes": 0, "image": null}
	]}`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "comments" WHERE id = $1`)).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT ("id") DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes"}).AddRow(500, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "comments" WHERE id = $1`)).
		WithArgs(501).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("setval").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = New(db, Options{}).Load(context.Background(), strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1 (id 501)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_FailureBeforeAnyCreateSkipsSequenceSync(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	doc := `{"comments": [
		{"id": 9, "author": "a", "text": "broken", "date": "garbage", "likes": 0, "image": null}
	]}`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "comments" WHERE id = $1`)).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, err = New(db, Options{}).Load(context.Background(), strings.NewReader(doc))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
