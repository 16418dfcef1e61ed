package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:128;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:128;not null"`
	Name         string    `json:"name" gorm:"size:64;not null"`
	PhoneNumber  string    `json:"phoneNumber" gorm:"size:20"`
	DeviceID     *string   `json:"deviceId" gorm:"size:128;uniqueIndex"` // 未绑定设备时为 NULL
	Address      string    `json:"address" gorm:"size:255"`
	Role         string    `json:"role" gorm:"size:16;default:USER"`
	Active       bool      `json:"active" gorm:"default:true"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func CreateUser(db *gorm.DB, user *User) error {
	if user.Role == "" {
		user.Role = RoleUser
	}
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByDeviceID 只返回启用中的用户
func GetUserByDeviceID(db *gorm.DB, deviceID string) (*User, error) {
	var user User
	if err := db.Where("device_id = ? AND active = ?", deviceID, true).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsernameOrEmail(db *gorm.DB, v string) (*User, error) {
	var user User
	if err := db.Where("username = ? OR email = ?", v, v).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func exists(db *gorm.DB, column, value string) (bool, error) {
	var n int64
	if err := db.Model(&User{}).Where(column+" = ?", value).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func ExistsUsername(db *gorm.DB, username string) (bool, error) {
	return exists(db, "username", username)
}

func ExistsEmail(db *gorm.DB, email string) (bool, error) {
	return exists(db, "email", email)
}

func ExistsDeviceID(db *gorm.DB, deviceID string) (bool, error) {
	return exists(db, "device_id", deviceID)
}
