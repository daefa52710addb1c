// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshkey parses and validates OpenSSH public key lines as they appear
// in a fleet config or an authorized_keys file.
package sshkey

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Parse splits a raw public key string (like one from an authorized_keys file)
// into its three core components: algorithm, key data, and comment.
// It correctly handles leading options in the line (e.g., from="...",command="...").
func Parse(rawKey string) (algorithm, keyData, comment string, err error) {
	fields := strings.Fields(rawKey)
	if len(fields) == 0 {
		err = fmt.Errorf("empty line")
		return
	}

	keyStartIndex := -1
	for i, field := range fields {
		if strings.HasPrefix(field, "ssh-") || strings.HasPrefix(field, "ecdsa-") || strings.HasPrefix(field, "sk-") {
			keyStartIndex = i
			break
		}
	}

	if keyStartIndex == -1 {
		err = fmt.Errorf("no valid SSH key type found in line")
		return
	}

	if len(fields) < keyStartIndex+2 {
		err = fmt.Errorf("invalid public key format: missing key data after algorithm")
		return
	}

	algorithm = fields[keyStartIndex]
	keyData = fields[keyStartIndex+1]
	if len(fields) > keyStartIndex+2 {
		comment = strings.Join(fields[keyStartIndex+2:], " ")
	}

	return
}

// Validate checks that a raw public key line is a well-formed OpenSSH
// authorized key. The base64 blob is decoded and cross-checked against the
// declared algorithm, so a truncated or hand-edited key is rejected here
// rather than on the target host.
func Validate(rawKey string) error {
	if strings.TrimSpace(rawKey) == "" {
		return fmt.Errorf("empty public key line")
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(rawKey))
	if err != nil {
		return fmt.Errorf("not a valid authorized key: %w", err)
	}

	algorithm, _, _, perr := Parse(rawKey)
	if perr != nil {
		return perr
	}
	if key.Type() != algorithm {
		return fmt.Errorf("key type %q does not match declared algorithm %q", key.Type(), algorithm)
	}
	return nil
}
