package auth

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/jrsteele09/go-cellar-auth/users"
)

// Validator holds the input rules of the development backend
type Validator struct {
	allowedRoles []users.RoleType
}

// NewValidator creates a new Validator instance. Self-service sign up may only request
// the customer role; staff and admin accounts are seeded.
func NewValidator() *Validator {
	return &Validator{allowedRoles: []users.RoleType{users.RoleCustomer}}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(identifier, password string) error {
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("email or username is required")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ValidateRegistration checks a sign-up request
func (v *Validator) ValidateRegistration(req RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		return err
	}
	if req.Role == "" {
		return nil
	}
	for _, role := range v.allowedRoles {
		if strings.EqualFold(req.Role, string(role)) {
			return nil
		}
	}
	return fmt.Errorf("role %q cannot be requested at sign up", req.Role)
}

// ValidateUserState validates user account state (blocked, verified)
func (v *Validator) ValidateUserState(account *Account) error {
	if account == nil {
		return UserNotFoundErr
	}
	if account.Blocked {
		return UserBlockedErr
	}
	if !account.Verified {
		return UserUnverifiedErr
	}
	return nil
}

// ValidateEmail checks for a bare address such as "ada@cellar.test"
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
