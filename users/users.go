package users

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents a storefront role carried in access token claims
type RoleType string

const (
	RoleCustomer RoleType = "customer" // Shoppers: catalog, cart, checkout, order tracking
	RoleStaff    RoleType = "staff"    // Shop floor: point-of-sale terminal
	RoleAdmin    RoleType = "admin"    // Operators: inventory management and everything staff can do
)

// DefaultRole is substituted whenever a token carries no role claims
const DefaultRole = RoleCustomer

// User is the identity projected from access token claims.
// Every field is populated; see token/jwt.DeriveUser for the fallback chains.
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Clone returns a copy that shares no slices with u
func (u User) Clone() User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}

// HasRole reports whether the user holds role, ignoring case
func (u User) HasRole(role RoleType) bool {
	return HasAnyRole(u.Roles, []string{string(role)})
}

// HasAnyRole reports whether held and required intersect, ignoring case.
// An empty required set is satisfied by any non-empty held set.
func HasAnyRole(held, required []string) bool {
	if len(held) == 0 {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, h := range held {
		for _, r := range required {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(r)) {
				return true
			}
		}
	}
	return false
}

// JoinRoles renders roles the way the roles cookie stores them
func JoinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

// SplitRoles parses a comma-joined role list, dropping blanks
func SplitRoles(joined string) []string {
	roles := make([]string, 0)
	for _, r := range strings.Split(joined, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains at least one letter
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasLetter bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsLetter(char) {
			hasLetter = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
