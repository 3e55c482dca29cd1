package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/atinyakov/todosync/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Session is returned by a successful registration or login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// AuthService implements account registration and login by delegating
// persistence to a UserStore and token signing to a TokenIssuer.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	// cost is the bcrypt work factor.
	cost int
}

// NewAuthService constructs an AuthService.
func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and returns a session for it.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, invalidf("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidf("invalid email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, invalidf("password cannot be used: %v", err)
	}

	u := models.User{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, &StoreError{Op: "create user", Err: err}
	}
	return s.session(u)
}

// Login checks the credentials and returns a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, &StoreError{Op: "get user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(*u)
}

// Profile returns the account of the authenticated user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &StoreError{Op: "get user", Err: err}
	}
	return u, nil
}

func (s *AuthService) session(u models.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = nil
	return &Session{Token: token, User: u}, nil
}
