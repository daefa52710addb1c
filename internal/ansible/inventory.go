// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package ansible

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Host is one inventory entry matched by a pattern.
type Host struct {
	Name    string
	Address string // best known address, "" when the inventory has none
}

// addressVars, in preference order. The inventory exposes different names
// depending on connection plugin and host vars.
var addressVars = []string{"ansible_hostname", "inventory_hostname", "ansible_host", "address"}

// ListHosts asks the engine's inventory which hosts a pattern selects.
// Results are sorted by name so output is stable across runs.
func (r *Runner) ListHosts(ctx context.Context, pattern string) ([]Host, error) {
	cmd := execCommand(ctx, r.InventoryBin, "--list", "--yaml", "--limit", pattern)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w", r.InventoryBin, err)
	}
	return parseInventory(out.Bytes())
}

// parseInventory flattens the group tree of `ansible-inventory --list --yaml`
// into a host list. Groups are walked in sorted name order, so a host
// appearing in several groups keeps the first address found in that fixed
// order and the result is stable across runs.
func parseInventory(data []byte) ([]Host, error) {
	var root struct {
		All struct {
			Hosts    map[string]map[string]interface{} `yaml:"hosts"`
			Children map[string]struct {
				Hosts map[string]map[string]interface{} `yaml:"hosts"`
			} `yaml:"children"`
		} `yaml:"all"`
	}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing inventory listing: %w", err)
	}

	found := map[string]string{}
	collect := func(hosts map[string]map[string]interface{}) {
		for name, vars := range hosts {
			if addr, ok := found[name]; ok && addr != "" {
				continue
			}
			found[name] = addressFromVars(vars)
		}
	}
	collect(root.All.Hosts)
	groupNames := make([]string, 0, len(root.All.Children))
	for name := range root.All.Children {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		collect(root.All.Children[name].Hosts)
	}

	hosts := make([]Host, 0, len(found))
	for name, addr := range found {
		hosts = append(hosts, Host{Name: name, Address: addr})
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Name < hosts[j].Name })
	return hosts, nil
}

func addressFromVars(vars map[string]interface{}) string {
	for _, key := range addressVars {
		if v, ok := vars[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
