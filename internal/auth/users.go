package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"golang.org/x/crypto/bcrypt"
)

const (
	SESSION_LIFETIME_MONTHS = 3
	SESSION_RENEW_DAYS      = 5
)

type Storage interface {
	SaveUser(ctx context.Context, user User) error
	IsUserExists(ctx context.Context, username string) (bool, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByUserName(ctx context.Context, username string) (User, error)
	SaveSession(ctx context.Context, session Session) error
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, token string, expireAt time.Time) error
	LogoutUser(ctx context.Context, userID string, token string) error
}

// HashPassword hashes a plain password with bcrypt for storing on the user.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func ComparePasswords(hashedPwd string, plainPwd string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPwd), []byte(plainPwd)) == nil
}

type Service struct {
	storage Storage
	now     func() time.Time
}

func NewService(s Storage) *Service {
	return &Service{
		storage: s,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SaveUser registers the user and logs them in.
func (s *Service) SaveUser(ctx context.Context, newUser NewUser) (string, error) {
	newUser.UserName = strings.ToLower(strings.TrimSpace(newUser.UserName))
	newUser.Email = strings.ToLower(strings.TrimSpace(newUser.Email))
	if err := newUser.ValidateUserFields(); err != nil {
		return "", err
	}

	exists, err := s.storage.IsUserExists(ctx, newUser.UserName)
	if err != nil {
		return "", fmt.Errorf("failed to check username availability: %w", err)
	}
	if exists {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrConflict,
			Message: fmt.Sprintf("this '%s' username already taken", newUser.UserName),
		}
	}
	emailTaken, err := s.storage.IsEmailTaken(ctx, newUser.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check email availability: %w", err)
	}
	if emailTaken {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrConflict,
			Message: fmt.Sprintf("this '%s' email address already taken, try to register with another email.", newUser.Email),
		}
	}

	hashedPassword, err := HashPassword(newUser.PasswordPlain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	user := User{
		ID:             uuid.New().String(),
		UserName:       newUser.UserName,
		FullName:       CapitalizeFullName(newUser.FullName),
		Email:          newUser.Email,
		PasswordHashed: hashedPassword,
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to registration: %w", err)
	}

	token, err := s.GenerateSession(ctx, UserCredentialsPure{UserName: newUser.UserName, PasswordPlain: newUser.PasswordPlain})
	if err != nil {
		return "", fmt.Errorf("registration successfully but failed to generate session: %w | try login", err)
	}
	return token, nil
}

func (s *Service) ValidateUser(ctx context.Context, credentials UserCredentialsPure) (User, error) {
	if err := credentials.Validate(); err != nil {
		return User{}, err
	}
	user, err := s.storage.GetUserByUserName(ctx, strings.ToLower(credentials.UserName))
	if err != nil {
		if appErrors.CodeOf(err) == appErrors.ErrNotFound {
			return User{}, appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "Username or password is wrong."}
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
		return User{}, appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "Username or password is wrong."}
	}
	return user, nil
}

func (s *Service) GenerateSession(ctx context.Context, credentials UserCredentialsPure) (string, error) {
	user, err := s.ValidateUser(ctx, credentials)
	if err != nil {
		return "", err
	}

	tokenByte := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, tokenByte); err != nil {
		return "", fmt.Errorf("failed to generate new session: %w", err)
	}
	now := s.now()
	session := Session{
		ID:        uuid.New().String(),
		Token:     hex.EncodeToString(tokenByte),
		CreatedAt: now,
		ExpireAt:  now.AddDate(0, SESSION_LIFETIME_MONTHS, 0),
		UserID:    user.ID,
	}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return session.Token, nil
}

// CheckSession returns the session owner. Sessions close to expiry are extended by a month.
func (s *Service) CheckSession(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return User{}, appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "Session does not exist, please login."}
	}
	session, err := s.storage.GetSessionByToken(ctx, token)
	if err != nil {
		return User{}, fmt.Errorf("failed to get session by token: %w", err)
	}

	now := s.now()
	if session.ExpireAt.Before(now) {
		return User{}, appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "Your session expired, please login again."}
	}
	if session.ExpireAt.Sub(now) <= SESSION_RENEW_DAYS*24*time.Hour {
		if err := s.storage.UpdateSession(ctx, token, now.AddDate(0, 1, 0)); err != nil {
			return User{}, fmt.Errorf("failed to update session: %w", err)
		}
	}

	user, err := s.storage.GetUser(ctx, session.UserID)
	if err != nil {
		return User{}, fmt.Errorf("failed to get session owner: %w", err)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Service) LogoutUser(ctx context.Context, userID string, token string) error {
	if err := s.storage.LogoutUser(ctx, userID, strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

func CapitalizeFullName(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
