// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import "testing"

// A well-formed ed25519 public key used across the test suite.
const testKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl test@test"

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantAlgorithm string
		wantComment   string
		wantErr       bool
	}{
		{"plain key", testKey, "ssh-ed25519", "test@test", false},
		{"key with options", `from="10.0.0.1",no-pty ` + testKey, "ssh-ed25519", "test@test", false},
		{"no comment", "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl", "ssh-ed25519", "", false},
		{"empty line", "", "", "", true},
		{"no key type", "this is not a key", "", "", true},
		{"missing key data", "ssh-ed25519", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			algorithm, _, comment, err := Parse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if algorithm != tt.wantAlgorithm {
				t.Errorf("algorithm = %q, want %q", algorithm, tt.wantAlgorithm)
			}
			if comment != tt.wantComment {
				t.Errorf("comment = %q, want %q", comment, tt.wantComment)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid key", testKey, false},
		{"empty", "   ", true},
		{"garbage", "definitely not a key", true},
		{"truncated blob", "ssh-ed25519 AAAAC3NzaC1lZDI1 test@test", true},
		{"algorithm mismatch", "ssh-rsa AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}
