// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestWriteScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.sh")
	err := WriteScript(path, "/usr/bin/corral-client",
		[]string{"--name", "scout", "--port", "11411"})
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	want := "#!/bin/sh\nexec /usr/bin/corral-client --name scout --port 11411\n"
	if string(data) != want {
		t.Errorf("script content = %q, want %q", data, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat script: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("script mode = %o, want 755", info.Mode().Perm())
	}
}

func TestWriteScriptQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.sh")
	err := WriteScript(path, "/opt/corral client/bin/client",
		[]string{"--label", "west pasture", "--note", "it's dusty"})
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	want := "#!/bin/sh\nexec '/opt/corral client/bin/client' --label 'west pasture' --note 'it'\\''s dusty'\n"
	if string(data) != want {
		t.Errorf("script content = %q, want %q", data, want)
	}
}

// TestWriteScriptExecutes runs a generated script through a real
// shell to prove the quoting survives word splitting.
func TestWriteScriptExecutes(t *testing.T) {
	echoPath, err := exec.LookPath("echo")
	if err != nil {
		t.Fatalf("echo not found: %v", err)
	}

	path := filepath.Join(t.TempDir(), "scout.sh")
	if err := WriteScript(path, echoPath, []string{"pose lock", "acquired"}); err != nil {
		t.Fatalf("WriteScript: %v", err)
	}

	output, err := exec.Command(path).Output()
	if err != nil {
		t.Fatalf("running script: %v", err)
	}
	if got, want := string(output), "pose lock acquired\n"; got != want {
		t.Errorf("script output = %q, want %q", got, want)
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain word", "scout", "scout"},
		{"empty string", "", "''"},
		{"path", "/usr/bin/corral-client", "/usr/bin/corral-client"},
		{"flag with value", "--port=11411", "--port=11411"},
		{"space", "west pasture", "'west pasture'"},
		{"single quote", "it's", "'it'\\''s'"},
		{"shell metacharacters", "a;b|c", "'a;b|c'"},
		{"dollar expansion", "$HOME", "'$HOME'"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := shellQuote(test.input); got != test.want {
				t.Errorf("shellQuote(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}
