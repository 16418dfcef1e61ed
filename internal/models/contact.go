package models

import (
	"time"

	"gorm.io/gorm"
)

// EmergencyContact 紧急联系人，删除为软删除（IsActive=false）
type EmergencyContact struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"userId" gorm:"index;not null"`
	Name         string    `json:"name" gorm:"size:64;not null"`
	PhoneNumber  string    `json:"phoneNumber" gorm:"size:20;not null"`
	Email        string    `json:"email" gorm:"size:128"`
	Relationship string    `json:"relationship" gorm:"size:32"`
	Priority     int       `json:"priority" gorm:"not null;index"`
	IsActive     bool      `json:"active" gorm:"default:true;index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func CreateContact(db *gorm.DB, contact *EmergencyContact) error {
	contact.IsActive = true
	return db.Create(contact).Error
}

// GetActiveContact 已停用的联系人视为不存在
func GetActiveContact(db *gorm.DB, id uint) (*EmergencyContact, error) {
	var contact EmergencyContact
	if err := db.Where("id = ? AND is_active = ?", id, true).First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

// ListActiveContacts 按优先级升序
func ListActiveContacts(db *gorm.DB, userID uint) ([]EmergencyContact, error) {
	var contacts []EmergencyContact
	err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("priority ASC").Order("id ASC").
		Find(&contacts).Error
	return contacts, err
}

func UpdateContact(db *gorm.DB, contact *EmergencyContact) error {
	return db.Model(contact).Select("Name", "PhoneNumber", "Email", "Relationship", "Priority").Updates(contact).Error
}

func DeactivateContact(db *gorm.DB, id uint) error {
	return db.Model(&EmergencyContact{}).Where("id = ?", id).Update("is_active", false).Error
}
