package contacts

import (
	"context"
	"strings"

	"GuardianSOS/internal/models"
	"GuardianSOS/internal/validation"
	"GuardianSOS/pkg/errors"
	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Request 新增与修改共用
type Request struct {
	Name         string `json:"name" binding:"required"`
	PhoneNumber  string `json:"phoneNumber" binding:"required,krphone"`
	Email        string `json:"email" binding:"omitempty,email"`
	Relationship string `json:"relationship"`
	Priority     *int   `json:"priority" binding:"required"`
}

// Messages 字段校验提示
var Messages = validation.Messages{
	"name.required":        "이름은 필수입니다",
	"phoneNumber.required": "전화번호는 필수입니다",
	"phoneNumber.krphone":  "올바른 전화번호 형식이 아닙니다",
	"email.email":          "올바른 이메일 형식이 아닙니다",
	"priority.required":    "우선순위는 필수입니다",
}

// Validate repeats the binding rules for callers that do not go through gin.
func (r *Request) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = Messages["name.required"]
	}
	switch {
	case strings.TrimSpace(r.PhoneNumber) == "":
		fields["phoneNumber"] = Messages["phoneNumber.required"]
	case !validation.PhonePattern.MatchString(r.PhoneNumber):
		fields["phoneNumber"] = Messages["phoneNumber.krphone"]
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		fields["email"] = Messages["email.email"]
	}
	if r.Priority == nil {
		fields["priority"] = Messages["priority.required"]
	}
	if len(fields) == 0 {
		return nil
	}
	return errors.Validation("입력 값이 올바르지 않습니다").WithContexts(fields)
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Add(ctx context.Context, userID uint, req Request) (*models.EmergencyContact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := &models.EmergencyContact{
		UserID:       userID,
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Relationship: req.Relationship,
		Priority:     *req.Priority,
	}
	if err := models.CreateContact(s.db.WithContext(ctx), c); err != nil {
		return nil, errors.Infrastructure(err, "긴급 연락처 저장 실패")
	}
	logger.Info("emergency contact added", zap.Uint("userId", userID), zap.Uint("contactId", c.ID))
	return c, nil
}

// List 仅返回启用中的联系人，按优先级升序
func (s *Service) List(ctx context.Context, userID uint) ([]models.EmergencyContact, error) {
	list, err := models.ListActiveContacts(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, errors.Infrastructure(err, "긴급 연락처 조회 실패")
	}
	return list, nil
}

func (s *Service) Update(ctx context.Context, userID, contactID uint, req Request) (*models.EmergencyContact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.owned(ctx, userID, contactID, "해당 긴급 연락처를 수정할 권한이 없습니다")
	if err != nil {
		return nil, err
	}
	c.Name = req.Name
	c.PhoneNumber = req.PhoneNumber
	c.Email = req.Email
	c.Relationship = req.Relationship
	c.Priority = *req.Priority
	if err := models.UpdateContact(s.db.WithContext(ctx), c); err != nil {
		return nil, errors.Infrastructure(err, "긴급 연락처 수정 실패")
	}
	logger.Info("emergency contact updated", zap.Uint("contactId", c.ID))
	return c, nil
}

// Delete 软删除
func (s *Service) Delete(ctx context.Context, userID, contactID uint) error {
	c, err := s.owned(ctx, userID, contactID, "해당 긴급 연락처를 삭제할 권한이 없습니다")
	if err != nil {
		return err
	}
	if err := models.DeactivateContact(s.db.WithContext(ctx), c.ID); err != nil {
		return errors.Infrastructure(err, "긴급 연락처 삭제 실패")
	}
	logger.Info("emergency contact deactivated", zap.Uint("contactId", c.ID))
	return nil
}

func (s *Service) owned(ctx context.Context, userID, contactID uint, denied string) (*models.EmergencyContact, error) {
	c, err := models.GetActiveContact(s.db.WithContext(ctx), contactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("긴급 연락처를 찾을 수 없습니다: %d", contactID)
		}
		return nil, errors.Infrastructure(err, "긴급 연락처 조회 실패")
	}
	if c.UserID != userID {
		return nil, errors.PermissionDenied(denied)
	}
	return c, nil
}
