package auth

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-cellar-auth/token"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RegisterRequest is a self-service sign up
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// RegisterResult carries tokens when the account is signed straight in, otherwise a message
type RegisterResult struct {
	Tokens  *token.Pair
	Message string
}

const registeredMessage = "Account created. Please sign in."

// AccountService is the account and token logic behind the development auth backend
type AccountService struct {
	repo      UserRepo
	tokens    *token.Manager
	validator *Validator
	autoLogin bool
}

type AccountServiceOption func(*AccountService)

// WithAutoLogin makes Register return tokens instead of a confirmation message
func WithAutoLogin(autoLogin bool) AccountServiceOption {
	return func(s *AccountService) {
		s.autoLogin = autoLogin
	}
}

func NewAccountService(repo UserRepo, tokens *token.Manager, options ...AccountServiceOption) (*AccountService, error) {
	if repo == nil {
		return nil, errors.New("[NewAccountService] Users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAccountService] token manager is required")
	}

	s := &AccountService{
		repo:      repo,
		tokens:    tokens,
		validator: NewValidator(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// LookupUser resolves a user by id for the refresh grant
func LookupUser(repo UserRepo) token.UserLookup {
	return func(ctx context.Context, userID string) (*users.User, error) {
		account, err := repo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := NewValidator().ValidateUserState(account); err != nil {
			return nil, err
		}
		return &account.User, nil
	}
}

// Login authenticates by email or username. Either field may carry the identifier.
func (s *AccountService) Login(ctx context.Context, email, username, password string) (*token.Pair, error) {
	identifier := strings.TrimSpace(email)
	if identifier == "" {
		identifier = strings.TrimSpace(username)
	}
	if err := s.validator.ValidateUserCredentials(identifier, password); err != nil {
		return nil, &ValidationError{Err: err}
	}

	account, err := s.repo.GetByEmail(ctx, identifier)
	if errors.Is(err, UserNotFoundErr) {
		account, err = s.repo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if !users.CheckPasswordHash(password, account.PasswordHash) {
		return nil, UserPasswordsDontMatchErr
	}
	if err := s.validator.ValidateUserState(account); err != nil {
		return nil, err
	}

	return s.tokens.Issue(ctx, &account.User)
}

// Refresh runs the refresh grant
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// Register creates a verified customer account
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.ValidateRegistration(req); err != nil {
		return nil, &ValidationError{Err: err}
	}

	account, err := s.createAccount(ctx, req.Name, req.Email, "", req.Password, users.DefaultRole)
	if err != nil {
		return nil, err
	}
	log.Info().Str("email", account.Email).Msg("Account registered")

	if !s.autoLogin {
		return &RegisterResult{Message: registeredMessage}, nil
	}
	pair, err := s.tokens.Issue(ctx, &account.User)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Tokens: pair}, nil
}

// Seed creates one account per storefront role, all sharing password. Existing accounts are left alone.
func (s *AccountService) Seed(ctx context.Context, domain, password string) error {
	for _, role := range []users.RoleType{users.RoleAdmin, users.RoleStaff, users.RoleCustomer} {
		email := string(role) + "@" + domain
		_, err := s.createAccount(ctx, strings.ToUpper(string(role[:1]))+string(role[1:]), email, string(role), password, role)
		if errors.Is(err, UserExistsErr) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "AccountService.Seed %s", role)
		}
		log.Info().Str("email", email).Str("username", string(role)).Str("role", string(role)).Msg("Seeded account")
	}
	return nil
}

func (s *AccountService) createAccount(ctx context.Context, name, email, username, password string, role users.RoleType) (*Account, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "AccountService.createAccount HashPassword")
	}
	account := &Account{
		User: users.User{
			Name:  name,
			Email: email,
			Roles: []string{string(role)},
		},
		Username:     username,
		PasswordHash: hash,
		Verified:     true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
