package auth

import (
	"context"
	"regexp"
	"time"
	"unicode/utf8"
)

type service struct {
	userRepo       UserRepo
	passwordHasher PasswordHasher
	tokenManager   TokenManager
}

func NewService(userRepo UserRepo, passwordHasher PasswordHasher, tokenManager TokenManager) *service {
	return &service{userRepo, passwordHasher, tokenManager}
}

var usernameFormat = regexp.MustCompile("^[a-z0-9_]{3,20}$")

// bcrypt-era limits don't apply to argon2id, but unbounded passwords are a
// cheap DoS on the hasher.
const maxPasswordRunes = 128

func (as *service) Signup(ctx context.Context, username, password string) (string, error) {
	if !usernameFormat.MatchString(username) {
		return "", ErrInvalidUsernameFormat
	}

	if utf8.RuneCountInString(password) < 8 {
		return "", ErrWeakPassword
	}

	if utf8.RuneCountInString(password) > maxPasswordRunes {
		return "", ErrPasswordTooLong
	}

	passwordHash, err := as.passwordHasher.Hash(password)
	if err != nil {
		return "", err
	}

	id, err := as.userRepo.CreateUser(ctx, username, passwordHash)
	if err != nil {
		return "", err
	}

	return as.tokenManager.Generate(id, time.Now())
}

func (as *service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := as.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	match, err := as.passwordHasher.Compare(user.PasswordHash, password)
	if err != nil {
		return "", err
	}
	if !match {
		return "", ErrIncorrectPassword
	}

	return as.tokenManager.Generate(user.Id, time.Now())
}

// GuestLogin creates a throwaway account with no credentials, the mobile
// client's anonymous sign-in. Guests keep their stats until the sweeper-side
// retention job prunes them.
func (as *service) GuestLogin(ctx context.Context, displayName string) (string, error) {
	if !usernameFormat.MatchString(displayName) {
		return "", ErrInvalidUsernameFormat
	}

	id, err := as.userRepo.CreateGuest(ctx, displayName)
	if err != nil {
		return "", err
	}

	return as.tokenManager.Generate(id, time.Now())
}

// VerifyToken returns the user id if the token is valid, else an error.
func (as *service) VerifyToken(token string) (string, error) {
	return as.tokenManager.Verify(token)
}

func (as *service) GenerateToken(id string) (string, error) {
	return as.tokenManager.Generate(id, time.Now())
}
