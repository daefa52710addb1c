// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Role classifies what a user may do on the hosts an access entry selects.
// The set of roles is closed; adding one means extending roleTable below and
// nothing else.
type Role string

const (
	// RoleBlocked revokes access: keys are removed, the account (if any) is
	// left untouched.
	RoleBlocked Role = "blocked"

	// RoleSudoer gets an account and password-gated sudo via the managed
	// sudoer group.
	RoleSudoer Role = "sudoer"

	// RoleNopass gets an account and passwordless sudo via the managed
	// nopass group.
	RoleNopass Role = "nopass"

	// RoleSuperuser gets a root alias: uid 0, non-unique, member of root.
	RoleSuperuser Role = "superuser"
)

// Managed group names planted on every host during the bootstrap phase.
const (
	SudoerGroup = "sshman-sudoer"
	NopassGroup = "sshman-nopass"
)

// roleTraits is the privilege mapping for one role. Accounts are always
// created with a locked password; access is key-only.
type roleTraits struct {
	createsAccount bool
	implicitGroup  string
	uidZero        bool
	nonUnique      bool
}

var roleTable = map[Role]roleTraits{
	RoleBlocked:   {},
	RoleSudoer:    {createsAccount: true, implicitGroup: SudoerGroup},
	RoleNopass:    {createsAccount: true, implicitGroup: NopassGroup},
	RoleSuperuser: {createsAccount: true, implicitGroup: "root", uidZero: true, nonUnique: true},
}

// ParseRole converts a config string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleTable[r]; !ok {
		return "", fmt.Errorf("unknown role %q (want one of blocked, sudoer, nopass, superuser)", s)
	}
	return r, nil
}

// Valid reports whether the role is one of the four known variants.
func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

// CreatesAccount reports whether an account is provisioned for this role.
func (r Role) CreatesAccount() bool { return roleTable[r].createsAccount }

// ImplicitGroup returns the supplementary group the role always carries,
// or "" for roles without one.
func (r Role) ImplicitGroup() string { return roleTable[r].implicitGroup }

// UIDZero reports whether accounts for this role are created as uid 0.
func (r Role) UIDZero() bool { return roleTable[r].uidZero }

// NonUnique reports whether the account uid may collide with an existing one.
func (r Role) NonUnique() bool { return roleTable[r].nonUnique }

func (r Role) String() string { return string(r) }

// UnmarshalYAML validates the role while the fleet config is decoded, so an
// unrecognized role string fails at parse time.
func (r *Role) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
