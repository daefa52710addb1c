// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.
package i18n

import (
	"strings"
	"testing"
)

func TestT_BasicAndFallback(t *testing.T) {
	Init("en")

	if got := T("run.aborted"); got != "Aborted." {
		t.Fatalf("expected 'Aborted.', got %q", got)
	}

	// Unknown IDs fall back to the ID itself.
	if got := T("no.such.message"); got != "no.such.message" {
		t.Fatalf("expected fallback to message ID, got %q", got)
	}
}

func TestT_FormatStringsSurvive(t *testing.T) {
	Init("en")

	// Messages used as fmt format strings must keep their verbs intact.
	got := T("run.engine_exit")
	if !strings.Contains(got, "%d") {
		t.Fatalf("expected %%d verb in %q", got)
	}
}

func TestSetLang_German(t *testing.T) {
	SetLang("de")
	defer SetLang("en")

	if got := T("run.aborted"); got != "Abgebrochen." {
		t.Fatalf("expected German translation, got %q", got)
	}
}
