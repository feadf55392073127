package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type GuardConfig interface {
	GetGuardRules() []GuardRule
	GetLoginPath() string
	GetForbiddenPath() string
}

// GuardRule protects every path matching Pattern.
// An empty RequiredRoles list admits any authenticated role.
type GuardRule struct {
	Pattern       string   `yaml:"pattern"`
	RequiredRoles []string `yaml:"roles"`
}

type guardRulesFile struct {
	Rules []GuardRule `yaml:"rules"`
}

const guardRulesFileVar = "GUARD_RULES_FILE"

type Guard struct{}

var _ GuardConfig = Guard{}

// DefaultGuardRules are the protected prefixes of the storefront
func DefaultGuardRules() []GuardRule {
	return []GuardRule{
		{Pattern: "/admin/**", RequiredRoles: []string{"admin"}},
		{Pattern: "/staff/**", RequiredRoles: []string{"staff", "admin"}},
		{Pattern: "/account/**"},
	}
}

// GetGuardRules loads GUARD_RULES_FILE when set, otherwise the defaults
func (Guard) GetGuardRules() []GuardRule {
	path := GetEnv(guardRulesFileVar, "")
	if path == "" {
		return DefaultGuardRules()
	}
	rules, err := LoadGuardRules(path)
	if err != nil {
		log.Err(err).Str("file", path).Msg("Failed to load guard rules, using defaults")
		return DefaultGuardRules()
	}
	return rules
}

func (Guard) GetLoginPath() string {
	return GetEnv("LOGIN_PATH", "/login")
}

func (Guard) GetForbiddenPath() string {
	return GetEnv("FORBIDDEN_PATH", "/forbidden")
}

// LoadGuardRules reads an ordered rule list:
//
//	rules:
//	  - pattern: /admin/**
//	    roles: [admin]
func LoadGuardRules(path string) ([]GuardRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config LoadGuardRules] read %s: %w", path, err)
	}
	return ParseGuardRules(data)
}

func ParseGuardRules(data []byte) ([]GuardRule, error) {
	var file guardRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("[config ParseGuardRules] invalid yaml: %w", err)
	}
	for i, rule := range file.Rules {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("[config ParseGuardRules] rule %d has no pattern", i)
		}
	}
	return file.Rules, nil
}
