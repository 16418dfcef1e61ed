package testutil

import (
	"path/filepath"
	"testing"

	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/middleware"
	"GuardianSOS/pkg/util"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated sqlite database under t.TempDir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := util.InitDatabase("sqlite", filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	require.NoError(t, middleware.MigrateAudit(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedUser creates an active user; deviceID "" leaves the device unbound.
func SeedUser(t *testing.T, db *gorm.DB, username, deviceID string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Name:         "사용자 " + username,
		PhoneNumber:  "010-0000-0000",
		Active:       true,
	}
	if deviceID != "" {
		u.DeviceID = &deviceID
	}
	require.NoError(t, models.CreateUser(db, u))
	return u
}

func SeedContact(t *testing.T, db *gorm.DB, userID uint, name, phone, email string, priority int) *models.EmergencyContact {
	t.Helper()
	c := &models.EmergencyContact{
		UserID:      userID,
		Name:        name,
		PhoneNumber: phone,
		Email:       email,
		Priority:    priority,
	}
	require.NoError(t, models.CreateContact(db, c))
	return c
}
