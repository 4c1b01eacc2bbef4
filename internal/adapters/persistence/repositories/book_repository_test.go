package repositories

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"unilib-circ/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func TestClaimCopyUntilExhausted(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	book := &models.Book{
		Title:           "Claimable",
		Author:          "Someone",
		Tag:             "WHITE",
		TotalCopies:     3,
		AvailableCopies: 3,
	}
	require.NoError(t, repo.Create(ctx, book))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.ClaimCopy(ctx, book.ID))
	}

	// Fourth claim finds no copy to take.
	err := repo.ClaimCopy(ctx, book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	stored, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(0), stored.AvailableCopies)
}

func TestReleaseCopyCappedAtTotal(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	book := &models.Book{
		Title:           "Releasable",
		Author:          "Someone",
		Tag:             "WHITE",
		TotalCopies:     2,
		AvailableCopies: 2,
	}
	require.NoError(t, repo.Create(ctx, book))

	require.NoError(t, repo.ClaimCopy(ctx, book.ID))
	require.NoError(t, repo.ReleaseCopy(ctx, book.ID))

	// Every copy is on the shelf; another release must not overshoot.
	err := repo.ReleaseCopy(ctx, book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	stored, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), stored.AvailableCopies)
}

func TestClaimCopyMissingBook(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)

	err := repo.ClaimCopy(context.Background(), 12345)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
