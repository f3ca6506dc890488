package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestRatingCheckConstraints(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		value int
		ok    bool
	}{
		{MinRating - 1, false},
		{MinRating, true},
		{MaxRating, true},
		{MaxRating + 1, false},
	}
	for i, tt := range tests {
		// each grade needs its own message slot
		grade := Grade{Grade: tt.value, Description: "d", MessageID: uint(i + 1), UserID: 1, AuthorID: 2}
		err := db.Create(&grade).Error
		if tt.ok {
			require.NoError(t, err, "grade %d", tt.value)
		} else {
			assert.Error(t, err, "grade %d", tt.value)
			continue
		}

		answer := Answer{GradeID: grade.ID, GradeAnswer: tt.value, Text: "t"}
		assert.NoError(t, db.Create(&answer).Error)
	}

	bad := Answer{GradeID: 99, GradeAnswer: MaxRating + 1, Text: "t"}
	assert.Error(t, db.Create(&bad).Error)
}

func TestSeedCategoriesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, SeedCategories(db, DefaultCategories))
	require.NoError(t, SeedCategories(db, DefaultCategories))

	var count int64
	require.NoError(t, db.Model(&Category{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultCategories)), count)
}
