package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campuslink/backend/internal/database"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = apierrors.Unauthorized("invalid email or password")
	ErrInvalidToken       = apierrors.Unauthorized("invalid or expired token")
)

// Service issues and verifies HS256 bearer tokens for campus accounts.
type Service struct {
	db            *gorm.DB
	jwtSecret     []byte
	tokenTTL      time.Duration
	allowedDomain string
}

// NewService creates a new authentication service. An empty allowedDomain
// accepts any email address.
func NewService(db *gorm.DB, jwtSecret []byte, tokenTTL time.Duration, allowedDomain string) *Service {
	return &Service{
		db:            db,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
		allowedDomain: strings.ToLower(allowedDomain),
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type RegisterRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Branch    string   `json:"branch"`
	Year      int      `json:"year"`
	Interests []string `json:"interests"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) validateRegistration(req *RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" {
		return apierrors.ValidationError("name", "name is required")
	}
	at := strings.LastIndex(req.Email, "@")
	if at < 1 || at == len(req.Email)-1 {
		return apierrors.ValidationError("email", "a valid email is required")
	}
	if s.allowedDomain != "" && req.Email[at+1:] != s.allowedDomain {
		return apierrors.ValidationError("email", fmt.Sprintf("email must belong to %s", s.allowedDomain))
	}
	if len(req.Password) < minPasswordLength {
		return apierrors.ValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if req.Branch != "" && !models.StringArray(models.Branches).Contains(req.Branch) {
		return apierrors.ValidationError("branch", "unknown branch")
	}
	if req.Year < 0 || req.Year > 5 {
		return apierrors.ValidationError("year", "year must be between 1 and 5")
	}
	for _, interest := range req.Interests {
		if !models.StringArray(models.Interests).Contains(interest) {
			return apierrors.ValidationError("interests", fmt.Sprintf("unknown interest %q", interest))
		}
	}
	return nil
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.validateRegistration(&req); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", req.Email).Count(&count).Error; err != nil {
		return nil, apierrors.InternalError("failed to check email", err)
	}
	if count > 0 {
		return nil, apierrors.Conflict("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierrors.InternalError("failed to hash password", err)
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
		Branch:       req.Branch,
		Year:         req.Year,
		Interests:    models.StringArray(req.Interests),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apierrors.Conflict("email already registered")
		}
		return nil, apierrors.InternalError("failed to create user", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID))
	return s.GenerateToken(&user)
}

// Login checks an email/password pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apierrors.ValidationError("email", "email and password are required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, apierrors.InternalError("failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.GenerateToken(&user)
}

// GenerateToken signs a token for user.
func (s *Service) GenerateToken(user *models.User) (*AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, apierrors.InternalError("failed to sign token", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies signature and expiry, then loads the user so a
// deleted account stops authenticating immediately.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, apierrors.Unauthorized("missing token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	} else if err != nil {
		return nil, apierrors.InternalError("failed to load user", err)
	}
	return &user, nil
}
