package auth

import (
	"context"
	"strings"

	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/errors"
	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SignupRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required,min=6,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,krphone"`
	DeviceID    string `json:"deviceId"`
	Address     string `json:"address"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// JwtResponse 登录成功返回
type JwtResponse struct {
	Token       string  `json:"token"`
	Type        string  `json:"type"`
	ID          uint    `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	PhoneNumber string  `json:"phoneNumber"`
	DeviceID    *string `json:"deviceId"`
}

type Service struct {
	db     *gorm.DB
	tokens *TokenManager
}

func NewService(db *gorm.DB, tokens *TokenManager) *Service {
	return &Service{db: db, tokens: tokens}
}

func (s *Service) Tokens() *TokenManager { return s.tokens }

// Signup creates an active USER. Username, email and device id must be unused.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	db := s.db.WithContext(ctx)
	if ok, err := models.ExistsUsername(db, req.Username); err != nil {
		return nil, errors.Infrastructure(err, "사용자 조회 실패")
	} else if ok {
		return nil, errors.Conflict("이미 사용 중인 사용자명입니다")
	}
	if ok, err := models.ExistsEmail(db, req.Email); err != nil {
		return nil, errors.Infrastructure(err, "사용자 조회 실패")
	} else if ok {
		return nil, errors.Conflict("이미 사용 중인 이메일입니다")
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID != "" {
		if ok, err := models.ExistsDeviceID(db, deviceID); err != nil {
			return nil, errors.Infrastructure(err, "사용자 조회 실패")
		} else if ok {
			return nil, errors.Conflict("이미 등록된 장치 ID입니다")
		}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "비밀번호 처리 실패")
	}
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		Address:      req.Address,
		Role:         models.RoleUser,
		Active:       true,
	}
	if deviceID != "" {
		user.DeviceID = &deviceID
	}
	if err := models.CreateUser(db, user); err != nil {
		return nil, errors.Infrastructure(err, "회원가입 실패")
	}
	logger.Info("user signed up", zap.Uint("userId", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*JwtResponse, error) {
	user, err := models.GetUserByUsernameOrEmail(s.db.WithContext(ctx), req.UsernameOrEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials()
		}
		return nil, errors.Infrastructure(err, "사용자 조회 실패")
	}
	if !user.Active || !CheckPassword(user.PasswordHash, req.Password) {
		return nil, errBadCredentials()
	}
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, errors.Wrap(err, "토큰 발급 실패")
	}
	return &JwtResponse{
		Token:       token,
		Type:        "Bearer",
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Name:        user.Name,
		PhoneNumber: user.PhoneNumber,
		DeviceID:    user.DeviceID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	return s.tokens.Revoke(ctx, claims)
}

func (s *Service) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := models.GetUserByID(s.db.WithContext(ctx), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("사용자를 찾을 수 없습니다: %d", userID)
		}
		return nil, errors.Infrastructure(err, "사용자 조회 실패")
	}
	return user, nil
}

func errBadCredentials() error {
	return errors.Unauthorized("아이디 또는 비밀번호가 올바르지 않습니다")
}
