// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package plan

import (
	"fmt"
	"strings"

	"github.com/toeirei/sshman/internal/model"
)

// CompileAudit transforms a validated fleet config into a read-only drift
// audit: a plan that gathers every authorized key actually present on the
// fleet and fails when keys exist that the config does not grant. Nothing in
// the audit mutates a host. Like Compile, the result is deterministic and
// built from three concatenated phases:
//
//  1. one play per user per access entry recording the granted key set,
//  2. one play collecting the actual key set of every account on all hosts,
//  3. one play diffing the two and failing on any extra key.
func CompileAudit(cfg *model.Config) (Plan, error) {
	var p Plan
	for _, user := range cfg.Users {
		for _, entry := range user.Access {
			if !entry.Role.Valid() {
				return nil, &CompilationError{Msg: fmt.Sprintf("role %q is outside the privilege table", entry.Role)}
			}
			// A blocked entry grants nothing; its keys must count as drift,
			// not as desired state.
			if entry.Role == model.RoleBlocked {
				continue
			}
			p = append(p, grantedKeysPlay(user, entry))
		}
	}
	p = append(p, actualKeysPlay(), driftCheckPlay())
	return p, nil
}

// grantedKeysPlay records the keys the config grants one user on one host
// scope, as an engine fact keyed by account name.
func grantedKeysPlay(user model.User, entry model.AccessEntry) Play {
	quoted := make([]string, len(user.Pubkeys))
	for i, key := range user.Pubkeys {
		quoted[i] = `"` + key + `"`
	}
	return Play{
		Name:  fmt.Sprintf("Populate desired pubkey facts for %s on %s.", user.Name, entry.Hosts),
		Hosts: entry.Hosts,
		Tasks: []Task{AuditStep{
			Name:   "Populate desired pubkey facts.",
			Module: "ansible.builtin.set_fact",
			Args: []ModuleArg{{
				Key: "desired_pubkeys",
				Value: fmt.Sprintf(`{{ desired_pubkeys | default({}) | combine({"%s": [%s]}) }}`,
					user.Name, strings.Join(quoted, ", ")),
			}},
		}},
	}
}

// actualKeysPlay reads every account's authorized_keys file on every host
// and records the result as a fact keyed by account name. Home directories
// come from the passwd database; accounts without a key file are skipped.
// Only the file read itself is privileged.
func actualKeysPlay() Play {
	return Play{
		Name:  "Populate actual pubkey facts for all hosts.",
		Hosts: "all",
		Tasks: []Task{
			AuditStep{
				Name:   "Read contents of passwd db.",
				Module: "ansible.builtin.getent",
				Args:   []ModuleArg{{Key: "database", Value: "passwd"}},
			},
			AuditStep{
				Name:   "Append username to passwd items.",
				Module: "ansible.builtin.set_fact",
				Args: []ModuleArg{{
					Key:   "getent_passwd",
					Value: "{{ getent_passwd | combine({item.key: item.value + [item.key]}) }}",
				}},
				Keywords: []TaskKeyword{
					{Key: "loop", Value: "{{ getent_passwd | dict2items }}"},
					{Key: "delegate_to", Value: "localhost"},
					{Key: "run_once", Value: true},
				},
			},
			AuditStep{
				Name:   "Read authorized_keys for each user.",
				Module: "ansible.builtin.slurp",
				Args:   []ModuleArg{{Key: "src", Value: "{{ item[4] }}/.ssh/authorized_keys"}},
				Keywords: []TaskKeyword{
					{Key: "loop", Value: "{{ getent_passwd.values() }}"},
					{Key: "register", Value: "pubkey_files"},
					{Key: "ignore_errors", Value: true},
					{Key: "become", Value: true},
				},
			},
			AuditStep{
				Name:   "Populate actual pubkey facts.",
				Module: "ansible.builtin.set_fact",
				Args: []ModuleArg{{
					Key:   "actual_pubkeys",
					Value: `{{ actual_pubkeys | default({}) | combine({item.item[-1]: item.content | trim | b64decode | split('\n') | reject('equalto', '') }) }}`,
				}},
				Keywords: []TaskKeyword{
					{Key: "loop", Value: "{{ pubkey_files.results }}"},
					{Key: "when", Value: "item.failed != True"},
				},
			},
		},
	}
}

// driftCheckPlay compares actual against granted keys per account and fails
// the run when any host carries a key the config does not grant. The extra
// keys are printed before the failure so the operator sees the drift.
func driftCheckPlay() Play {
	return Play{
		Name:  "Validate authorized keys.",
		Hosts: "all",
		Tasks: []Task{
			AuditStep{
				Name:   "Compute differences in desired and actual pubkey lists.",
				Module: "ansible.builtin.set_fact",
				Args: []ModuleArg{{
					Key:   "_pubkey_diff",
					Value: "{{ _pubkey_diff | default({}) | combine({item.key: item.value | reject('in', desired_pubkeys[item.key] | default([]))}) }}",
				}},
				Keywords: []TaskKeyword{
					{Key: "loop", Value: "{{ actual_pubkeys | dict2items }}"},
				},
			},
			AuditStep{
				Name:   "Filter pubkey diff list.",
				Module: "ansible.builtin.set_fact",
				Args: []ModuleArg{{
					Key:   "pubkey_diff",
					Value: "{{ pubkey_diff | default({}) | combine({item.key: item.value}) }}",
				}},
				Keywords: []TaskKeyword{
					{Key: "loop", Value: "{{ _pubkey_diff | dict2items }}"},
					{Key: "when", Value: "item.value | length > 0"},
				},
			},
			AuditStep{
				Name:   "Print extra keys.",
				Module: "ansible.builtin.debug",
				Args:   []ModuleArg{{Key: "msg", Value: "{{ pubkey_diff[item.key] }}"}},
				Keywords: []TaskKeyword{
					{Key: "loop", Value: "{{ pubkey_diff | default({}) | dict2items }}"},
					{Key: "failed_when", Value: "pubkey_diff | default({}) | length > 0"},
				},
			},
		},
	}
}
