// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the validated in-memory form of the fleet config: the
// users, their public keys, and the per-host-group roles they hold. A Config
// is built once by ParseConfig and treated as read-only afterwards; the plan
// compiler never mutates it.
package model

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/toeirei/sshman/internal/sshkey"
	"gopkg.in/yaml.v3"
)

// User is one managed person: a host account name, their public keys in
// declaration order, and the access they hold per host scope.
type User struct {
	Name    string        `yaml:"name"`
	Pubkeys []string      `yaml:"pubkeys"`
	Access  []AccessEntry `yaml:"access"`
}

// AccessEntry grants (or revokes) one role on one host pattern.
//
// Hosts is an opaque selector passed through to the orchestration engine;
// sshman never interprets it. A nil Groups slice means supplementary group
// membership is not managed beyond what the role requires, which is distinct
// from an explicit empty list. SEUser, when set, is applied only when the
// account is first created.
type AccessEntry struct {
	Hosts  string   `yaml:"hosts"`
	Role   Role     `yaml:"role"`
	Groups []string `yaml:"groups,omitempty"`
	SEUser string   `yaml:"seuser,omitempty"`
}

// Config is the validated fleet description.
type Config struct {
	Users []User
}

// ValidationError reports a malformed or inconsistent fleet config. It is
// fatal: no plan is compiled from a config that fails validation.
type ValidationError struct {
	User  string // offending user name, if the problem is user-scoped
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.User != "" {
		return fmt.Sprintf("invalid fleet config: user %q: %s: %s", e.User, e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid fleet config: %s: %s", e.Field, e.Msg)
}

// accountNameRe matches names useradd accepts on common distributions.
var accountNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,30}\$?$`)

// ParseConfig decodes a fleet config document (a YAML sequence of users) and
// validates it. Unknown fields are rejected so typos surface here instead of
// silently dropping access rules.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var users []User
	if err := dec.Decode(&users); err != nil {
		if err == io.EOF {
			// An empty document is a valid, empty fleet.
			return &Config{}, nil
		}
		return nil, &ValidationError{Field: "yaml", Msg: err.Error()}
	}

	cfg := &Config{Users: users}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if u.Name == "" {
			return &ValidationError{Field: "name", Msg: "user name must not be empty"}
		}
		if !accountNameRe.MatchString(u.Name) {
			return &ValidationError{User: u.Name, Field: "name", Msg: "not a valid host account name"}
		}
		if seen[u.Name] {
			return &ValidationError{User: u.Name, Field: "name", Msg: "duplicate user"}
		}
		seen[u.Name] = true

		privileged := false
		for _, entry := range u.Access {
			if entry.Hosts == "" {
				return &ValidationError{User: u.Name, Field: "access.hosts", Msg: "host pattern must not be empty"}
			}
			if !entry.Role.Valid() {
				return &ValidationError{User: u.Name, Field: "access.role", Msg: fmt.Sprintf("unknown role %q", entry.Role)}
			}
			if entry.Role != RoleBlocked {
				privileged = true
			}
		}

		// A purely blocked user may have zero keys; anyone who can log in
		// somewhere must bring at least one.
		if privileged && len(u.Pubkeys) == 0 {
			return &ValidationError{User: u.Name, Field: "pubkeys", Msg: "at least one public key is required for a non-blocked user"}
		}
		for _, key := range u.Pubkeys {
			if err := sshkey.Validate(key); err != nil {
				return &ValidationError{User: u.Name, Field: "pubkeys", Msg: err.Error()}
			}
		}
	}
	return nil
}
