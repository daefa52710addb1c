// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package plan

import (
	"fmt"
	"path"
	"strings"

	"github.com/toeirei/sshman/internal/model"
)

// Sudo drop-in conventions shared by both managed groups.
const (
	sudoersDir      = "/etc/sudoers.d"
	sudoersMode     = "0440"
	sudoersValidate = "visudo -cf %s"
)

// CompilationError reports an impossible state reached during compilation.
// A validated config can not trigger it; if it fires, it is a defect.
type CompilationError struct {
	Msg string
}

func (e *CompilationError) Error() string {
	return "plan compilation failed: " + e.Msg
}

// Compile transforms a validated fleet config into a Plan. The result is
// deterministic: the same config always compiles to the same plan, play for
// play, task for task. Compilation happens in three fixed phases that are
// concatenated, never interleaved:
//
//  1. bootstrap of the managed sudo groups on all hosts,
//  2. one account play per user per access entry,
//  3. one key-authorization play per user per access entry.
//
// The double iteration of phases 2 and 3 follows config declaration order.
// When two entries of the same user select overlapping hosts, the later key
// play wins on the overlap; sshman does not try to detect that.
func Compile(cfg *model.Config) (Plan, error) {
	p := Plan{bootstrapPlay()}

	accounts, err := accountPlays(cfg)
	if err != nil {
		return nil, err
	}
	p = append(p, accounts...)
	p = append(p, keyPlays(cfg)...)
	return p, nil
}

// bootstrapPlay prepares the managed sudo groups and their sudoers drop-ins
// on every host. It runs unconditionally: the groups are fleet furniture,
// present whether or not any current user holds the matching role.
func bootstrapPlay() Play {
	return Play{
		Name:   "Bootstrap managed sudo groups.",
		Hosts:  "all",
		Become: true,
		Tasks: []Task{
			EnsureGroup{Group: model.SudoerGroup},
			sudoersFragment(model.SudoerGroup, []string{
				fmt.Sprintf("%%%s ALL=(ALL) ALL", model.SudoerGroup),
				fmt.Sprintf("Defaults:%%%s rootpw", model.SudoerGroup),
			}),
			EnsureGroup{Group: model.NopassGroup},
			sudoersFragment(model.NopassGroup, []string{
				fmt.Sprintf("%%%s ALL=(ALL) NOPASSWD: ALL", model.NopassGroup),
				fmt.Sprintf("Defaults:%%%s !requiretty", model.NopassGroup),
			}),
		},
	}
}

func sudoersFragment(group string, rules []string) WriteSudoersFragment {
	return WriteSudoersFragment{
		Group:       group,
		RuleText:    strings.Join(rules, "\n") + "\n",
		Path:        path.Join(sudoersDir, group),
		ValidateCmd: sudoersValidate,
		Mode:        sudoersMode,
	}
}

// accountPlays emits one play per user per access entry, in declaration
// order. A blocked entry compiles to an empty play: the account is neither
// created nor removed, which is how "never delete users" is honored.
func accountPlays(cfg *model.Config) ([]Play, error) {
	var plays []Play
	for _, user := range cfg.Users {
		for _, entry := range user.Access {
			if !entry.Role.Valid() {
				return nil, &CompilationError{Msg: fmt.Sprintf("role %q is outside the privilege table", entry.Role)}
			}

			play := Play{
				Name:   fmt.Sprintf("Create accounts for %s.", user.Name),
				Hosts:  entry.Hosts,
				Become: true,
			}
			if entry.Role.CreatesAccount() {
				play.Tasks = []Task{EnsureAccount{
					Name:           user.Name,
					LockedPassword: true,
					Groups:         supplementaryGroups(entry.Role, entry.Groups),
					UIDZero:        entry.Role.UIDZero(),
					NonUnique:      entry.Role.NonUnique(),
					SEUser:         entry.SEUser,
				}}
			}
			plays = append(plays, play)
		}
	}
	return plays, nil
}

// supplementaryGroups unions the role's implicit group with the groups the
// entry names, preserving declaration order and dropping duplicates.
func supplementaryGroups(role model.Role, extra []string) []string {
	groups := []string{role.ImplicitGroup()}
	seen := map[string]bool{role.ImplicitGroup(): true}
	for _, g := range extra {
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		groups = append(groups, g)
	}
	return groups
}

// keyPlays emits one key-authorization play per user per access entry, in
// the same double order as accountPlays. Every entry produces exactly one
// AuthorizeKeys task regardless of role; a blocked entry flips it to removal
// and tolerates failure, since the account may never have existed on that
// host and revoking never-granted access must be a no-op.
func keyPlays(cfg *model.Config) []Play {
	var plays []Play
	for _, user := range cfg.Users {
		for _, entry := range user.Access {
			blocked := entry.Role == model.RoleBlocked
			plays = append(plays, Play{
				Name:   fmt.Sprintf("Authorize keys for %s.", user.Name),
				Hosts:  entry.Hosts,
				Become: true,
				Tasks: []Task{AuthorizeKeys{
					User:            user.Name,
					Keys:            strings.Join(user.Pubkeys, "\n"),
					Exclusive:       true,
					Present:         !blocked,
					TolerateFailure: blocked,
				}},
			})
		}
	}
	return plays
}
