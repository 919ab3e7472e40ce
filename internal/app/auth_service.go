package app

import (
	"context"
	"errors"
	"strings"

	"flagguess/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// UserRepository stores accounts. Create returns domain.ErrUsernameTaken on
// a duplicate; FindByUsername returns domain.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
}

// PasswordHasher produces and checks salted password digests.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Registration is the submitted sign-up form.
type Registration struct {
	Username        string `validate:"required,min=3"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// AuthService registers users and checks credentials.
type AuthService struct {
	users    UserRepository
	hasher   PasswordHasher
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewAuthService(users UserRepository, hasher PasswordHasher, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		validate: validator.New(),
		log:      log,
	}
}

// Register validates the form and stores a new user.
func (s *AuthService) Register(ctx context.Context, form Registration) (domain.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	if err := s.check(form); err != nil {
		return domain.User{}, err
	}

	digest, err := s.hasher.Hash(form.Password)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.Create(ctx, form.Username, digest)
	if err != nil {
		return domain.User{}, err
	}
	s.log.WithField("user", user.Username).Info("user registered")
	return user, nil
}

// Login returns the user whose password matches. Unknown users and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// ruleOrder decides which failure is reported when several apply.
var ruleOrder = []struct {
	field, tag, message string
}{
	{"", "required", "All fields are required."},
	{"ConfirmPassword", "eqfield", "Passwords do not match."},
	{"Username", "min", "Username must be at least 3 characters long."},
	{"Password", "min", "Password must be at least 6 characters long."},
}

func (s *AuthService) check(form Registration) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, rule := range ruleOrder {
		for _, fe := range fieldErrs {
			if fe.Tag() == rule.tag && (rule.field == "" || fe.Field() == rule.field) {
				return &domain.ValidationError{Field: fe.Field(), Message: rule.message}
			}
		}
	}
	fe := fieldErrs[0]
	return &domain.ValidationError{Field: fe.Field(), Message: "Invalid " + strings.ToLower(fe.Field()) + "."}
}
