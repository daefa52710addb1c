// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

// Package plan turns a validated fleet config into an ordered provisioning
// plan. A Plan is a list of plays; a play scopes an ordered task list to a
// host pattern. Tasks are immutable value objects; everything the emitter
// needs is captured at compile time.
package plan

import "fmt"

// Plan is the full ordered list of plays for one compilation.
type Plan []Play

// Play is one unit of work: a host scope plus its tasks, in order.
// Provisioning plays run with privilege elevation; audit plays do not,
// except for the single read step that needs it.
type Play struct {
	Name   string
	Hosts  string
	Become bool
	Tasks  []Task
}

// Task is a single declarative operation. The implementations below form a
// closed set: the four provisioning kinds mirroring the role table, plus
// AuditStep for the drift-audit pipeline.
type Task interface {
	// TaskName is the human-readable label shown by the engine.
	TaskName() string
}

// EnsureGroup creates a group on the target hosts if it is missing.
type EnsureGroup struct {
	Group string
}

func (t EnsureGroup) TaskName() string {
	return fmt.Sprintf("Create group %s.", t.Group)
}

// WriteSudoersFragment installs a sudo policy drop-in for one managed group.
// The fragment is syntax-checked with ValidateCmd before it is committed, so
// a bad rule can never lock sudo on the whole fleet.
type WriteSudoersFragment struct {
	Group       string
	RuleText    string
	Path        string
	ValidateCmd string
	Mode        string
}

func (t WriteSudoersFragment) TaskName() string {
	return fmt.Sprintf("Set sudo policy for group %s.", t.Group)
}

// EnsureAccount creates the user account if it does not exist and keeps its
// group membership and password lock in the desired state. The account is
// never deleted; revocation happens purely through key removal.
type EnsureAccount struct {
	Name           string
	LockedPassword bool
	Groups         []string
	UIDZero        bool
	NonUnique      bool
	SEUser         string
}

func (t EnsureAccount) TaskName() string {
	return fmt.Sprintf("Create account %s.", t.Name)
}

// AuthorizeKeys replaces the account's authorized key set on the target
// hosts. Exclusive means any key not in Keys is removed. With Present false
// the whole key set is cleared; TolerateFailure then swallows the error for
// accounts that were never created on that host.
type AuthorizeKeys struct {
	User            string
	Keys            string
	Exclusive       bool
	Present         bool
	TolerateFailure bool
}

func (t AuthorizeKeys) TaskName() string {
	return "Authorize public keys."
}

// AuditStep is one task of the read-only drift audit. Unlike the
// provisioning kinds above, audit steps are fixed fact-pipeline templates:
// they carry the raw module invocation plus the task keywords (loop,
// register, conditionals) the engine needs to iterate. Args and Keywords are
// ordered slices so rendering stays byte-stable.
type AuditStep struct {
	Name     string
	Module   string
	Args     []ModuleArg
	Keywords []TaskKeyword
}

// ModuleArg is one module argument of an AuditStep.
type ModuleArg struct {
	Key   string
	Value string
}

// TaskKeyword is a task-level engine keyword of an AuditStep. Value is
// either a string or a bool; anything else is rejected at render time.
type TaskKeyword struct {
	Key   string
	Value any
}

func (t AuditStep) TaskName() string {
	return t.Name
}
