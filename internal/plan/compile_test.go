// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package plan

import (
	"reflect"
	"strings"
	"testing"

	"github.com/toeirei/sshman/internal/model"
)

const (
	keyOne = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl joe@laptop"
	keyTwo = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl joe@desktop"
)

func sudoerJoeConfig() *model.Config {
	return &model.Config{Users: []model.User{{
		Name:    "sudoerjoe",
		Pubkeys: []string{keyOne},
		Access:  []model.AccessEntry{{Hosts: "staging", Role: model.RoleSudoer}},
	}}}
}

func TestCompile_EmptyConfigStillBootstraps(t *testing.T) {
	p, err := Compile(&model.Config{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(p) != 1 {
		t.Fatalf("expected only the bootstrap play, got %d plays", len(p))
	}

	boot := p[0]
	if boot.Hosts != "all" {
		t.Errorf("bootstrap hosts = %q, want all", boot.Hosts)
	}
	if len(boot.Tasks) != 4 {
		t.Fatalf("expected 4 bootstrap tasks, got %d", len(boot.Tasks))
	}

	// group, fragment, group, fragment - in this exact order.
	if g, ok := boot.Tasks[0].(EnsureGroup); !ok || g.Group != model.SudoerGroup {
		t.Errorf("task 0 = %+v, want EnsureGroup(%s)", boot.Tasks[0], model.SudoerGroup)
	}
	frag, ok := boot.Tasks[1].(WriteSudoersFragment)
	if !ok {
		t.Fatalf("task 1 = %+v, want WriteSudoersFragment", boot.Tasks[1])
	}
	if frag.Path != "/etc/sudoers.d/sshman-sudoer" || frag.Mode != "0440" || frag.ValidateCmd != "visudo -cf %s" {
		t.Errorf("unexpected sudoer fragment: %+v", frag)
	}
	if want := "%sshman-sudoer ALL=(ALL) ALL\nDefaults:%sshman-sudoer rootpw\n"; frag.RuleText != want {
		t.Errorf("sudoer rule = %q, want %q", frag.RuleText, want)
	}
	if g, ok := boot.Tasks[2].(EnsureGroup); !ok || g.Group != model.NopassGroup {
		t.Errorf("task 2 = %+v, want EnsureGroup(%s)", boot.Tasks[2], model.NopassGroup)
	}
	nofrag, ok := boot.Tasks[3].(WriteSudoersFragment)
	if !ok {
		t.Fatalf("task 3 = %+v, want WriteSudoersFragment", boot.Tasks[3])
	}
	if !strings.Contains(nofrag.RuleText, "NOPASSWD: ALL") || !strings.Contains(nofrag.RuleText, "!requiretty") {
		t.Errorf("nopass rule = %q", nofrag.RuleText)
	}
}

func TestCompile_SudoerJoeScenario(t *testing.T) {
	p, err := Compile(sudoerJoeConfig())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(p) != 3 {
		t.Fatalf("expected bootstrap + account + key plays, got %d", len(p))
	}

	account := p[1]
	if account.Name != "Create accounts for sudoerjoe." || account.Hosts != "staging" {
		t.Errorf("unexpected account play: %q on %q", account.Name, account.Hosts)
	}
	if len(account.Tasks) != 1 {
		t.Fatalf("expected one account task, got %d", len(account.Tasks))
	}
	acc := account.Tasks[0].(EnsureAccount)
	if acc.Name != "sudoerjoe" || !acc.LockedPassword || acc.UIDZero || acc.NonUnique || acc.SEUser != "" {
		t.Errorf("unexpected account task: %+v", acc)
	}
	if !reflect.DeepEqual(acc.Groups, []string{model.SudoerGroup}) {
		t.Errorf("groups = %v, want [%s]", acc.Groups, model.SudoerGroup)
	}

	keys := p[2]
	if keys.Name != "Authorize keys for sudoerjoe." || keys.Hosts != "staging" {
		t.Errorf("unexpected key play: %q on %q", keys.Name, keys.Hosts)
	}
	ak := keys.Tasks[0].(AuthorizeKeys)
	if ak.User != "sudoerjoe" || ak.Keys != keyOne || !ak.Exclusive || !ak.Present || ak.TolerateFailure {
		t.Errorf("unexpected key task: %+v", ak)
	}
}

func TestCompile_BlockedScenario(t *testing.T) {
	cfg := &model.Config{Users: []model.User{{
		Name:    "igotfired",
		Pubkeys: []string{keyTwo},
		Access:  []model.AccessEntry{{Hosts: "*", Role: model.RoleBlocked}},
	}}}
	p, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	account := p[1]
	if len(account.Tasks) != 0 {
		t.Fatalf("blocked account play must be empty, got %d tasks", len(account.Tasks))
	}

	ak := p[2].Tasks[0].(AuthorizeKeys)
	if ak.Present {
		t.Error("blocked entry must compile to key removal")
	}
	if !ak.Exclusive {
		t.Error("blocked removal must stay exclusive")
	}
	if !ak.TolerateFailure {
		t.Error("blocked removal must tolerate failure")
	}
	// Keys are carried for auditability even though removal ignores them.
	if ak.Keys != keyTwo {
		t.Errorf("keys = %q, want %q", ak.Keys, keyTwo)
	}
}

func TestCompile_SuperuserAttrs(t *testing.T) {
	cfg := &model.Config{Users: []model.User{{
		Name:    "root2",
		Pubkeys: []string{keyOne},
		Access:  []model.AccessEntry{{Hosts: "emergency", Role: model.RoleSuperuser, Groups: []string{"wheel"}}},
	}}}
	p, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	acc := p[1].Tasks[0].(EnsureAccount)
	if !acc.UIDZero || !acc.NonUnique {
		t.Errorf("superuser must be uid 0 and non-unique: %+v", acc)
	}
	if !reflect.DeepEqual(acc.Groups, []string{"root", "wheel"}) {
		t.Errorf("groups = %v, want [root wheel]", acc.Groups)
	}
}

func TestCompile_TwoEntriesKeepDeclarationOrder(t *testing.T) {
	cfg := &model.Config{Users: []model.User{{
		Name:    "dualjoe",
		Pubkeys: []string{keyOne, keyTwo},
		Access: []model.AccessEntry{
			{Hosts: "staging", Role: model.RoleNopass},
			{Hosts: "prod", Role: model.RoleSudoer},
		},
	}}}
	p, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(p) != 5 {
		t.Fatalf("expected 5 plays, got %d", len(p))
	}

	if p[1].Hosts != "staging" || p[2].Hosts != "prod" {
		t.Errorf("account plays out of order: %q, %q", p[1].Hosts, p[2].Hosts)
	}
	if p[3].Hosts != "staging" || p[4].Hosts != "prod" {
		t.Errorf("key plays out of order: %q, %q", p[3].Hosts, p[4].Hosts)
	}

	if g := p[1].Tasks[0].(EnsureAccount).Groups; !reflect.DeepEqual(g, []string{model.NopassGroup}) {
		t.Errorf("staging groups = %v", g)
	}
	if g := p[2].Tasks[0].(EnsureAccount).Groups; !reflect.DeepEqual(g, []string{model.SudoerGroup}) {
		t.Errorf("prod groups = %v", g)
	}

	// Multiple keys are joined with a newline, declaration order preserved.
	ak := p[3].Tasks[0].(AuthorizeKeys)
	if ak.Keys != keyOne+"\n"+keyTwo {
		t.Errorf("joined keys = %q", ak.Keys)
	}
}

func TestCompile_PhaseOrdering(t *testing.T) {
	cfg := &model.Config{Users: []model.User{
		{Name: "alpha", Pubkeys: []string{keyOne}, Access: []model.AccessEntry{{Hosts: "a", Role: model.RoleSudoer}}},
		{Name: "beta", Pubkeys: []string{keyTwo}, Access: []model.AccessEntry{{Hosts: "b", Role: model.RoleBlocked}, {Hosts: "c", Role: model.RoleNopass}}},
	}}
	p, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	// Phase boundaries: bootstrap, then all account plays, then all key plays.
	phase := 1
	for i, play := range p {
		switch {
		case strings.HasPrefix(play.Name, "Bootstrap"):
			if phase != 1 || i != 0 {
				t.Fatalf("bootstrap play out of phase at index %d", i)
			}
			phase = 2
		case strings.HasPrefix(play.Name, "Create accounts"):
			if phase > 2 {
				t.Fatalf("account play after key play at index %d", i)
			}
			phase = 2
		case strings.HasPrefix(play.Name, "Authorize keys"):
			phase = 3
		default:
			t.Fatalf("unclassified play %q", play.Name)
		}
	}
	if phase != 3 {
		t.Fatalf("plan ended in phase %d", phase)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	cfg := sudoerJoeConfig()
	first, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	second, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two compilations of the same config differ")
	}
}

func TestCompile_RejectsRoleOutsideTable(t *testing.T) {
	cfg := &model.Config{Users: []model.User{{
		Name:    "ghost",
		Pubkeys: []string{keyOne},
		Access:  []model.AccessEntry{{Hosts: "x", Role: model.Role("admin")}},
	}}}
	_, err := Compile(cfg)
	if err == nil {
		t.Fatal("expected CompilationError for role outside the table")
	}
	if _, ok := err.(*CompilationError); !ok {
		t.Fatalf("expected *CompilationError, got %T", err)
	}
}

func TestSupplementaryGroups_Dedup(t *testing.T) {
	got := supplementaryGroups(model.RoleSudoer, []string{"dev", model.SudoerGroup, "dev", "", "ops"})
	want := []string{model.SudoerGroup, "dev", "ops"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("supplementaryGroups = %v, want %v", got, want)
	}
}
