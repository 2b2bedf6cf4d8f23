// Package account registers rescue users and checks their credentials.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rubiojr/fuelrescue/internal/rescuedb"
)

const minPasswordLength = 6

var (
	// ErrInvalidCredentials is returned when the email or password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// Store persists users.
type Store interface {
	CreateUser(ctx context.Context, u *rescuedb.User) error
	UserByEmail(ctx context.Context, email string) (*rescuedb.User, error)
}

// FieldErrors maps a form field to the problem found with it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate returns FieldErrors when any field is unusable, nil otherwise.
func (in RegisterInput) Validate() error {
	errs := FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = "Name is required"
	}

	email := strings.TrimSpace(in.Email)
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Invalid email format"
	}

	switch {
	case in.Password == "":
		errs["password"] = "Password is required"
	case len(in.Password) < minPasswordLength:
		errs["password"] = fmt.Sprintf("Password must be at least %d characters", minPasswordLength)
	}

	if in.ConfirmPassword != in.Password {
		errs["confirm_password"] = "Passwords do not match"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type Service struct {
	store Store
	cost  int
	log   *slog.Logger
}

type Option func(*Service)

// WithCost sets the bcrypt cost used for new passwords.
func WithCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{store: store, cost: bcrypt.DefaultCost, log: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the input and stores a new user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*rescuedb.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	u := &rescuedb.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, rescuedb.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.Info("User registered", "email", u.Email)
	return u, nil
}

// Login returns the user when the password matches the stored hash.
func (s *Service) Login(ctx context.Context, email, password string) (*rescuedb.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, rescuedb.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Debug("Password mismatch", "email", u.Email)
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
