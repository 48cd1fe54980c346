package auth_test

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niedraa/typevision-server/auth"
	"github.com/niedraa/typevision-server/domain"
)

type MockUserRepo struct {
	users []domain.User
}

func (mur *MockUserRepo) CreateUser(ctx context.Context, username, passwordHash string) (string, error) {
	for _, u := range mur.users {
		if u.Username == username && !u.Guest {
			return "", domain.ErrDuplicateUsername
		}
	}
	id := "user-" + strconv.Itoa(len(mur.users))
	mur.users = append(mur.users, domain.User{Id: id, Username: username, PasswordHash: passwordHash})
	return id, nil
}

func (mur *MockUserRepo) CreateGuest(ctx context.Context, username string) (string, error) {
	id := "guest-" + strconv.Itoa(len(mur.users))
	mur.users = append(mur.users, domain.User{Id: id, Username: username, Guest: true})
	return id, nil
}

func (mur *MockUserRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	for _, u := range mur.users {
		if u.Username == username && !u.Guest {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (mur *MockUserRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	for _, u := range mur.users {
		if u.Id == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

type MockPasswordHasher struct{}

func (mph *MockPasswordHasher) Hash(password string) (string, error) {
	arr := []rune(password)
	for i := range arr {
		arr[i] = arr[i] ^ 7
	}
	return string(arr), nil
}

func (mph *MockPasswordHasher) Compare(hash, password string) (bool, error) {
	hashed, _ := mph.Hash(password)
	return hashed == hash, nil
}

type MockTokenManager struct{}

func (mtm *MockTokenManager) Generate(id string, now time.Time) (string, error) {
	return "token." + id, nil
}

func (mtm *MockTokenManager) Verify(token string) (string, error) {
	id, ok := strings.CutPrefix(token, "token.")
	if !ok {
		return "", domain.ErrCorruptedToken
	}
	return id, nil
}

func newTestService() auth.AuthService {
	return auth.NewService(&MockUserRepo{}, &MockPasswordHasher{}, &MockTokenManager{})
}

func TestSignup(t *testing.T) {
	t.Parallel()

	longPassword := strings.Repeat("a", 129)

	testCases := []struct {
		description   string
		username      string
		password      string
		expectedError error
	}{
		{"normal", "oussama145", "12345678", nil},
		{"with underscore", "oussama145_two", "12345678ermtrmt", nil},
		{"duplicate username", "oussama145", "12345678", domain.ErrDuplicateUsername},
		{"short password", "oussama", "1234567", auth.ErrWeakPassword},
		{"password too long", "oussama", longPassword, auth.ErrPasswordTooLong},
		{"username too short", "ou", "12345678", auth.ErrInvalidUsernameFormat},
		{"username too long", "oussamaermtermtermtermtrtmermterm", "12345678", auth.ErrInvalidUsernameFormat},
		{"username with space", "oussama_is the best", "12345678", auth.ErrInvalidUsernameFormat},
		{"username with uppercase", "Oussama", "12345678", auth.ErrInvalidUsernameFormat},
		{"with weird symbols", "oussama-remt!#$@#$%^^&&*(()_++++====ß´í¯ß)", "12345678", auth.ErrInvalidUsernameFormat},
		{"absent username", "", "12345678", auth.ErrInvalidUsernameFormat},
		{"absent password", "oussama", "", auth.ErrWeakPassword},
		{"absent username and password", "", "", auth.ErrInvalidUsernameFormat},
	}

	authService := newTestService()
	for _, tc := range testCases {
		token, err := authService.Signup(context.Background(), tc.username, tc.password)
		assert.ErrorIs(t, err, tc.expectedError, tc.description)
		if tc.expectedError == nil {
			assert.NotEmpty(t, token, tc.description)
		}
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	authService := newTestService()
	_, err := authService.Signup(context.Background(), "speedy", "hunter2hunter2")
	require.NoError(t, err)

	testCases := []struct {
		description   string
		username      string
		password      string
		expectedError error
	}{
		{"correct credentials", "speedy", "hunter2hunter2", nil},
		{"wrong password", "speedy", "not-the-password", auth.ErrIncorrectPassword},
		{"unknown user", "nobody", "hunter2hunter2", domain.ErrUserNotFound},
	}

	for _, tc := range testCases {
		token, err := authService.Login(context.Background(), tc.username, tc.password)
		assert.ErrorIs(t, err, tc.expectedError, tc.description)
		if tc.expectedError == nil {
			assert.NotEmpty(t, token, tc.description)
		}
	}
}

func TestGuestLogin(t *testing.T) {
	t.Parallel()

	authService := newTestService()

	token, err := authService.GuestLogin(context.Background(), "drop_in")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Guests don't reserve their display name.
	again, err := authService.GuestLogin(context.Background(), "drop_in")
	require.NoError(t, err)
	assert.NotEqual(t, token, again)

	_, err = authService.GuestLogin(context.Background(), "Bad Name!")
	assert.ErrorIs(t, err, auth.ErrInvalidUsernameFormat)
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	repo := &MockUserRepo{}
	authService := auth.NewService(repo, &MockPasswordHasher{}, &MockTokenManager{})

	token, err := authService.Signup(context.Background(), "speedy", "hunter2hunter2")
	require.NoError(t, err)

	id, err := authService.VerifyToken(token)
	require.NoError(t, err)

	user, err := repo.GetUserById(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "speedy", user.Username)

	_, err = authService.VerifyToken("garbage")
	assert.ErrorIs(t, err, domain.ErrCorruptedToken)
}
