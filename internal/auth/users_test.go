package auth

import (
	"context"
	"testing"
	"time"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mocks
type mockStorage struct {
	users    map[string]User
	sessions map[string]Session
}

func newMockStorage() *mockStorage {
	return &mockStorage{users: make(map[string]User), sessions: make(map[string]Session)}
}

func (m *mockStorage) SaveUser(ctx context.Context, user User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	_, err := m.GetUserByUserName(ctx, username)
	return err == nil, nil
}

func (m *mockStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStorage) GetUser(ctx context.Context, userID string) (User, error) {
	u, ok := m.users[userID]
	if !ok {
		return User{}, appErrors.ErrorResponse{Code: appErrors.ErrNotFound, Message: "User not found."}
	}
	return u, nil
}

func (m *mockStorage) GetUserByUserName(ctx context.Context, username string) (User, error) {
	for _, u := range m.users {
		if u.UserName == username {
			return u, nil
		}
	}
	return User{}, appErrors.ErrorResponse{Code: appErrors.ErrNotFound, Message: "User not found."}
}

func (m *mockStorage) SaveSession(ctx context.Context, session Session) error {
	m.sessions[session.Token] = session
	return nil
}

func (m *mockStorage) GetSessionByToken(ctx context.Context, token string) (Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "Session does not exist, please login."}
	}
	return s, nil
}

func (m *mockStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	s := m.sessions[token]
	s.ExpireAt = expireAt
	m.sessions[token] = s
	return nil
}

func (m *mockStorage) LogoutUser(ctx context.Context, userID string, token string) error {
	delete(m.sessions, token)
	return nil
}

// Tests

func TestHashPassword(t *testing.T) {
	plain := "messi10"

	hash, err := HashPassword(plain)
	require.NoError(t, err)

	require.True(t, ComparePasswords(hash, plain))
	require.False(t, ComparePasswords(hash, "ronaldo7"))
}

func TestSaveUser(t *testing.T) {
	store := newMockStorage()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.SaveUser(ctx, NewUser{UserName: "taken", PasswordPlain: "x", Email: "taken@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name        string
		input       NewUser
		wantCode    string
		expectedMsg string
	}{
		{
			name:        "Fail - Empty Username",
			input:       NewUser{UserName: "", PasswordPlain: "123", Email: "john@gmail.com"},
			wantCode:    appErrors.ErrInvalidInput,
			expectedMsg: "Username cannot be empty!",
		},
		{
			name:        "Fail - Empty Email",
			input:       NewUser{UserName: "bob", PasswordPlain: "123", Email: ""},
			wantCode:    appErrors.ErrInvalidInput,
			expectedMsg: "Email cannot be empty!",
		},
		{
			name:        "Fail - Invalid Email",
			input:       NewUser{UserName: "bob", PasswordPlain: "123", Email: "bob@"},
			wantCode:    appErrors.ErrInvalidInput,
			expectedMsg: "Invalid email format, example valid email: john.doe@gmail.com",
		},
		{
			name:     "Fail - Username taken",
			input:    NewUser{UserName: "Taken", PasswordPlain: "123", Email: "other@example.com"},
			wantCode: appErrors.ErrConflict,
		},
		{
			name:     "Fail - Email taken",
			input:    NewUser{UserName: "other", PasswordPlain: "123", Email: "TAKEN@example.com"},
			wantCode: appErrors.ErrConflict,
		},
		{
			name:  "Success - Valid Registration",
			input: NewUser{UserName: "johndoe", PasswordPlain: "secure123", Email: "john@example.com", FullName: "john doe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.SaveUser(ctx, tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrors.CodeOf(err))
				if tt.expectedMsg != "" {
					assert.Equal(t, tt.expectedMsg, appErrors.MessageOf(err))
				}
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, token)

			user, err := svc.CheckSession(ctx, "Bearer "+token)
			require.NoError(t, err)
			assert.Equal(t, "John Doe", user.FullName)
		})
	}
}

func TestValidateUser(t *testing.T) {
	store := newMockStorage()
	svc := NewService(store)
	ctx := context.Background()
	_, err := svc.SaveUser(ctx, NewUser{UserName: "john", PasswordPlain: "john123", Email: "john@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    UserCredentialsPure
		wantCode string
	}{
		{name: "Fail - Empty username", input: UserCredentialsPure{UserName: "", PasswordPlain: "1234"}, wantCode: appErrors.ErrInvalidInput},
		{name: "Fail - Empty password", input: UserCredentialsPure{UserName: "john", PasswordPlain: ""}, wantCode: appErrors.ErrInvalidInput},
		{name: "Fail - Wrong password", input: UserCredentialsPure{UserName: "john", PasswordPlain: "nope"}, wantCode: appErrors.ErrAuth},
		{name: "Fail - Unknown user", input: UserCredentialsPure{UserName: "mary", PasswordPlain: "john123"}, wantCode: appErrors.ErrAuth},
		{name: "Success - Valid user", input: UserCredentialsPure{UserName: "John", PasswordPlain: "john123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.ValidateUser(ctx, tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "john", user.UserName)
		})
	}
}

func TestCheckSession(t *testing.T) {
	store := newMockStorage()
	svc := NewService(store)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	store.users["u-1"] = User{ID: "u-1", UserName: "john"}
	store.sessions["tok-valid"] = Session{Token: "tok-valid", UserID: "u-1", ExpireAt: now.AddDate(0, 2, 0)}
	store.sessions["tok-expiring"] = Session{Token: "tok-expiring", UserID: "u-1", ExpireAt: now.Add(48 * time.Hour)}
	store.sessions["tok-expired"] = Session{Token: "tok-expired", UserID: "u-1", ExpireAt: now.Add(-time.Hour)}

	tests := []struct {
		name     string
		input    string
		wantCode string
	}{
		{name: "valid session", input: "tok-valid"},
		{name: "expiring session is renewed", input: "tok-expiring"},
		{name: "expired session", input: "tok-expired", wantCode: appErrors.ErrAuth},
		{name: "unknown session", input: "tok-unknown", wantCode: appErrors.ErrAuth},
		{name: "empty token", input: "", wantCode: appErrors.ErrAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.CheckSession(ctx, tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u-1", user.ID)
		})
	}

	assert.Equal(t, now.AddDate(0, 1, 0), store.sessions["tok-expiring"].ExpireAt)
}
