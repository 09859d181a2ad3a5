package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := versionCmd
	cmd.SetOut(out)

	runVersion(cmd, nil)

	got := out.String()
	if !strings.Contains(got, "pgrag") {
		t.Errorf("version output missing binary name: %q", got)
	}
	if !strings.Contains(got, Version) {
		t.Errorf("version output missing version string: %q", got)
	}
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	want := []string{"serve", "add", "search", "ask", "chat", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"single line", "single line"},
		{"first\nsecond", "first …"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
