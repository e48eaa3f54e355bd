package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/auth"
)

func (s *SQLStorage) SaveUser(ctx context.Context, user auth.User) error {
	query := "INSERT INTO app_user (id, username, fullname, hashed_password, email) VALUES (?, ?, ?, ?, ?);"
	_, err := s.exec(ctx, query, user.ID, user.UserName, user.FullName, user.PasswordHashed, user.Email)
	if err != nil {
		if s.dialect.IsDuplicate(err) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "The username or email is already taken.",
			}
		}
		return internalError(ctx, "SaveUser", "save user", err, "Registration failed, try again later.")
	}
	return nil
}

func (s *SQLStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	var count int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM app_user WHERE username = ?", username).Scan(&count); err != nil {
		return false, internalError(ctx, "IsUserExists", "check user existence", err, "Failed to check username, try again later.")
	}
	return count > 0, nil
}

func (s *SQLStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var count int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM app_user WHERE email = ?", email).Scan(&count); err != nil {
		return false, internalError(ctx, "IsEmailTaken", "check email existence", err, "Failed to check email, try again later.")
	}
	return count > 0, nil
}

func (s *SQLStorage) getUser(ctx context.Context, function string, where string, arg string) (auth.User, error) {
	query := "SELECT id, username, fullname, hashed_password, email FROM app_user WHERE " + where + " = ?"
	var user auth.User
	err := s.queryRow(ctx, query, arg).Scan(&user.ID, &user.UserName, &user.FullName, &user.PasswordHashed, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, notFound("User not found.")
		}
		return auth.User{}, internalError(ctx, function, "get user", err, "Failed to get user, try again later.")
	}
	return user, nil
}

func (s *SQLStorage) GetUser(ctx context.Context, userID string) (auth.User, error) {
	return s.getUser(ctx, "GetUser", "id", userID)
}

func (s *SQLStorage) GetUserByUserName(ctx context.Context, username string) (auth.User, error) {
	return s.getUser(ctx, "GetUserByUserName", "username", username)
}

func (s *SQLStorage) SaveSession(ctx context.Context, session auth.Session) error {
	query := "INSERT INTO session (id, token, created_at, expire_at, user_id) VALUES (?, ?, ?, ?, ?);"
	_, err := s.exec(ctx, query, session.ID, session.Token, session.CreatedAt, session.ExpireAt, session.UserID)
	if err != nil {
		return internalError(ctx, "SaveSession", "save session", err, "Failed to create session, try again later.")
	}
	return nil
}

func (s *SQLStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	query := `SELECT id, token, created_at, expire_at, user_id FROM session WHERE token = ?`
	var dbS dbSession
	err := s.queryRow(ctx, query, token).Scan(&dbS.ID, &dbS.Token, &dbS.CreatedAt, &dbS.ExpireAt, &dbS.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Session{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Session does not exist, please login.",
			}
		}
		return auth.Session{}, internalError(ctx, "GetSessionByToken", "get session", err, "Failed to check session, please try again later.")
	}
	return dbS.toSession(), nil
}

func (s *SQLStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	if _, err := s.exec(ctx, `UPDATE session SET expire_at = ? WHERE token = ?`, expireAt, token); err != nil {
		return internalError(ctx, "UpdateSession", "update session", err, "Failed to check session, please try again later.")
	}
	return nil
}

func (s *SQLStorage) LogoutUser(ctx context.Context, userID string, token string) error {
	res, err := s.exec(ctx, "DELETE FROM session WHERE user_id = ? AND token = ?", userID, token)
	if err != nil {
		return internalError(ctx, "LogoutUser", "delete session", err, "Failed to logout, try again later.")
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session does not exist, please login.",
		}
	}
	return nil
}
