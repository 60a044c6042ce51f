package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"tour-booking-api/internal/database"
	domainReview "tour-booking-api/internal/domain/review"
	domainTour "tour-booking-api/internal/domain/tour"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/pkg/utils"
)

const devData = "../../dev-data"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn), gormLogger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domainUser.User{}, &domainTour.Tour{}, &domainReview.Review{}))
	return db
}

func TestImportDevData(t *testing.T) {
	db := newTestDB(t)
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	s := New(db, hasher)

	counts, err := s.Import(context.Background(), devData)
	require.NoError(t, err)
	assert.Equal(t, &Counts{Users: 5, Tours: 3, Reviews: 3}, counts)

	var hiker domainTour.Tour
	require.NoError(t, db.Preload("Guides").Where("name = ?", "The Forest Hiker").First(&hiker).Error)
	assert.Equal(t, "the-forest-hiker", hiker.Slug)
	assert.Equal(t, 2, hiker.RatingsQuantity)
	assert.Equal(t, 4.5, hiker.RatingsAverage)
	assert.Len(t, hiker.Guides, 2)
	assert.Len(t, hiker.StartDates, 3)

	var admin domainUser.User
	require.NoError(t, db.Where("email = ?", "admin@natours.io").First(&admin).Error)
	assert.Equal(t, domainUser.RoleAdmin, admin.Role)
	assert.True(t, hasher.Compare(admin.PasswordHash, "test1234"))

	_, err = s.Import(context.Background(), devData)
	assert.Error(t, err, "importing twice collides on unique emails")
}

func TestImportMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, UsersFile), []byte("[]"), 0o600))

	_, err := New(newTestDB(t), utils.NewBcryptHasher(bcrypt.MinCost)).Import(context.Background(), dir)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	s := New(db, utils.NewBcryptHasher(bcrypt.MinCost))
	_, err := s.Import(context.Background(), devData)
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background()))

	for _, model := range []any{&domainUser.User{}, &domainTour.Tour{}, &domainReview.Review{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}
}
