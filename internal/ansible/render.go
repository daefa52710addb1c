// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ansible is the boundary to the orchestration engine. It serializes
// a compiled plan into Ansible playbook YAML, writes or executes playbooks,
// and queries the engine's inventory. Nothing in here makes policy decisions;
// the plan already carries everything.
package ansible

import (
	"bytes"
	"fmt"

	"github.com/toeirei/sshman/internal/plan"
	"gopkg.in/yaml.v3"
)

// Render serializes a plan as an Ansible playbook. Output is byte-stable for
// a given plan: mapping keys keep a fixed order, so rendering twice yields
// identical documents.
//
// Module argument values follow Ansible's loose typing conventions from the
// wire format this replaces: flags that reach a module are the strings
// "true"/"false", the locked password is the literal "*", and uid zero is the
// string "0". Task-level keywords (become, gather_facts, ignore_errors) stay
// real booleans.
func Render(p plan.Plan) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, play := range p {
		node, err := playNode(play)
		if err != nil {
			return nil, err
		}
		doc.Content = append(doc.Content, node)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding playbook: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding playbook: %w", err)
	}
	return buf.Bytes(), nil
}

func playNode(play plan.Play) (*yaml.Node, error) {
	tasks := &yaml.Node{Kind: yaml.SequenceNode}
	for _, t := range play.Tasks {
		node, err := taskNode(t)
		if err != nil {
			return nil, err
		}
		tasks.Content = append(tasks.Content, node)
	}

	return mapping(
		pair{"name", scalar(play.Name)},
		pair{"hosts", scalar(play.Hosts)},
		pair{"gather_facts", boolean(false)},
		pair{"become", boolean(play.Become)},
		pair{"tasks", tasks},
	), nil
}

func taskNode(t plan.Task) (*yaml.Node, error) {
	switch op := t.(type) {
	case plan.EnsureGroup:
		return mapping(
			pair{"name", scalar(op.TaskName())},
			pair{"ansible.builtin.group", mapping(
				pair{"name", scalar(op.Group)},
				pair{"state", scalar("present")},
			)},
		), nil

	case plan.WriteSudoersFragment:
		return mapping(
			pair{"name", scalar(op.TaskName())},
			pair{"ansible.builtin.copy", mapping(
				pair{"content", scalar(op.RuleText)},
				pair{"dest", scalar(op.Path)},
				pair{"mode", scalar(op.Mode)},
				pair{"validate", scalar(op.ValidateCmd)},
			)},
		), nil

	case plan.EnsureAccount:
		args := []pair{
			{"name", scalar(op.Name)},
		}
		if op.LockedPassword {
			args = append(args, pair{"password", scalar("*")})
		}
		groups := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, g := range op.Groups {
			groups.Content = append(groups.Content, scalar(g))
		}
		args = append(args,
			pair{"groups", groups},
			// Append keeps memberships sshman does not manage; revoking a
			// group never strips unrelated ones.
			pair{"append", scalar("true")},
		)
		if op.UIDZero {
			args = append(args, pair{"uid", scalar("0")})
		}
		if op.NonUnique {
			args = append(args, pair{"non_unique", scalar("true")})
		}
		if op.SEUser != "" {
			args = append(args, pair{"seuser", scalar(op.SEUser)})
		}
		args = append(args, pair{"state", scalar("present")})
		return mapping(
			pair{"name", scalar(op.TaskName())},
			pair{"ansible.builtin.user", mapping(args...)},
		), nil

	case plan.AuthorizeKeys:
		state := "present"
		if !op.Present {
			state = "absent"
		}
		task := []pair{
			{"name", scalar(op.TaskName())},
			{"ansible.posix.authorized_key", mapping(
				pair{"user", scalar(op.User)},
				pair{"key", scalar(op.Keys)},
				pair{"exclusive", scalar(boolString(op.Exclusive))},
				pair{"state", scalar(state)},
			)},
		}
		if op.TolerateFailure {
			task = append(task, pair{"ignore_errors", boolean(true)})
		}
		return mapping(task...), nil

	case plan.AuditStep:
		args := make([]pair, 0, len(op.Args))
		for _, a := range op.Args {
			args = append(args, pair{a.Key, scalar(a.Value)})
		}
		task := []pair{
			{"name", scalar(op.TaskName())},
			{op.Module, mapping(args...)},
		}
		for _, kw := range op.Keywords {
			switch v := kw.Value.(type) {
			case bool:
				task = append(task, pair{kw.Key, boolean(v)})
			case string:
				task = append(task, pair{kw.Key, scalar(v)})
			default:
				return nil, fmt.Errorf("cannot render %s keyword of type %T", kw.Key, kw.Value)
			}
		}
		return mapping(task...), nil

	default:
		return nil, fmt.Errorf("cannot render task of type %T", t)
	}
}

type pair struct {
	key string
	val *yaml.Node
}

func mapping(pairs ...pair) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range pairs {
		node.Content = append(node.Content, scalar(p.key), p.val)
	}
	return node
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolean(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: boolString(b)}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
