package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSelfModify         = errors.New("cannot delete or deactivate your own account")
)

const bootstrapUsername = "admin"

// Claims JWT 內容，sub 為使用者 ID
type Claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	Users     repository.UserRepository
	JWTSecret []byte
	TokenTTL  time.Duration
}

func NewAuthService(users repository.UserRepository, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{Users: users, JWTSecret: []byte(secret), TokenTTL: ttl}
}

// BootstrapAdmin 沒有任何使用者時建立預設管理者。
// password 為空會隨機產生並只印在 log 一次。
func (s *AuthService) BootstrapAdmin(ctx context.Context, password string) error {
	count, err := s.Users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	generated := password == ""
	if generated {
		if password, err = randomPassword(); err != nil {
			return err
		}
	}
	if _, err := s.CreateUser(ctx, bootstrapUsername, password, domain.RoleAdmin); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	if generated {
		logrus.Warnf("🔑 已建立預設管理者 %q，隨機密碼: %s (請登入後立即變更)", bootstrapUsername, password)
	} else {
		logrus.Infof("🔑 已建立預設管理者 %q", bootstrapUsername)
	}
	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Login 驗證並回傳 Token
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}

	// 比對密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issue(user, time.Now())
	if err != nil {
		return "", nil, err
	}
	if err := s.Users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		logrus.Warnf("無法更新最後登入時間 %s: %v", user.Username, err)
	}
	return token, user, nil
}

func (s *AuthService) issue(user *domain.User, now time.Time) (string, error) {
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// ParseToken 驗證簽章與期限，只接受 HS256
func (s *AuthService) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate 驗證 Token 後重新讀取使用者，
// 停用或刪除的帳號立即失效，角色以資料庫為準。
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := s.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	claims.Username = user.Username
	claims.Role = user.Role
	return claims, nil
}

func (s *AuthService) CreateUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.Users.Create(ctx, domain.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	})
}

// UserUpdate 管理者可調整的欄位
type UserUpdate struct {
	Role     *domain.Role
	IsActive *bool
	Password *string
}

// UpdateUser actorID 為操作者，不能停用自己
func (s *AuthService) UpdateUser(ctx context.Context, actorID, id string, u UserUpdate) (*domain.User, error) {
	if u.Role != nil && !u.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if actorID == id && u.IsActive != nil && !*u.IsActive {
		return nil, ErrSelfModify
	}

	patch := domain.UserPatch{Role: u.Role, IsActive: u.IsActive}
	if u.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*u.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hashed)
		patch.PasswordHash = &h
	}
	return s.Users.Update(ctx, id, patch)
}

func (s *AuthService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfModify
	}
	return s.Users.Delete(ctx, id)
}
