package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"commentboard/internal/models"
	"commentboard/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestCommentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{Author: "Admin", Text: "Nice post!", Date: time.Now()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes"}).AddRow(1, 0))
	mock.ExpectCommit()

	err := repo.Create(ctx, comment)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), comment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_CreateIfAbsent_UsesOnConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{ID: 7, Author: "Admin", Text: "hi", Date: time.Now(), Likes: 3}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT ("id") DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes"}))
	mock.ExpectCommit()

	inserted, err := repo.CreateIfAbsent(ctx, comment)
	assert.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" ORDER BY id asc`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author", "text"}).
			AddRow(1, "Admin", "Comment 1").
			AddRow(2, "Admin", "Comment 2"))

	comments, err := repo.List(ctx)
	assert.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Comment 1", comments[0].Text)
	assert.Equal(t, uint(2), comments[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Exists(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "comments" WHERE id = $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.Exists(ctx, 5)
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"Success", 1, nil},
		{"Not found", 0, gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewCommentRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comments" WHERE "comments"."id" = $1`)).
				WithArgs(3).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			err := repo.Delete(context.Background(), 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCommentRepository_SQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	date := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	t.Run("CreateIfAbsent keeps the existing row", func(t *testing.T) {
		inserted, err := repo.CreateIfAbsent(ctx, &models.Comment{ID: 10, Author: "Ann", Text: "original", Date: date, Likes: 1})
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = repo.CreateIfAbsent(ctx, &models.Comment{ID: 10, Author: "Bob", Text: "changed", Date: date, Likes: 99})
		require.NoError(t, err)
		assert.False(t, inserted)

		stored, err := repo.GetByID(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "Ann", stored.Author)
		assert.Equal(t, "original", stored.Text)
		assert.Equal(t, 1, stored.Likes)
	})

	t.Run("Update writes zero values", func(t *testing.T) {
		img := "https://example.com/a.png"
		c := &models.Comment{ID: 11, Author: "Cy", Text: "text", Date: date, Likes: 5, Image: &img}
		require.NoError(t, repo.Create(ctx, c))

		c.Likes = 0
		c.Image = nil
		require.NoError(t, repo.Update(ctx, c))

		stored, err := repo.GetByID(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Likes)
		assert.Nil(t, stored.Image)
	})

	t.Run("Update of a missing row", func(t *testing.T) {
		err := repo.Update(ctx, &models.Comment{ID: 999, Author: "x", Text: "y", Date: date})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("Delete then Exists", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 11))
		exists, err := repo.Exists(ctx, 11)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.ErrorIs(t, repo.Delete(ctx, 11), gorm.ErrRecordNotFound)
	})

	t.Run("WithTx rolls back", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			txRepo := repo.WithTx(tx)
			if err := txRepo.Create(ctx, &models.Comment{ID: 20, Author: "T", Text: "in tx", Date: date}); err != nil {
				return err
			}
			return gorm.ErrInvalidTransaction
		})
		require.Error(t, err)

		exists, err := repo.Exists(ctx, 20)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("List orders by id", func(t *testing.T) {
		testutil.InsertComments(t, db,
			&models.Comment{ID: 3, Author: "a", Text: "three"},
			&models.Comment{ID: 1, Author: "a", Text: "one"},
		)
		comments, err := repo.List(ctx)
		require.NoError(t, err)
		var ids []uint
		for _, c := range comments {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []uint{1, 3, 10}, ids)
	})
}
