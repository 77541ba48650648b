package main

import (
	"bytes"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestRootCommandRegistry(t *testing.T) {
	cmd := newRootCommand()

	expected := []string{
		"serve",
		"status",
		"submit",
		"progress",
		"fetch",
		"info",
		"jobs",
		"config",
		"test-notify",
	}
	registered := map[string]bool{}
	for _, sub := range cmd.Commands() {
		registered[sub.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("expected command %q to be registered", name)
		}
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	requireContains(t, out, "reel")
	requireContains(t, out, "submit")
	requireContains(t, out, "serve")
}

func TestSubmitRejectsUnknownHost(t *testing.T) {
	_, err := runCLI(t, "submit", "https://twitch.tv/some-stream")
	if err == nil {
		t.Fatal("expected an error for a host no platform matches")
	}
	if !strings.Contains(err.Error(), "platform") {
		t.Fatalf("expected platform inference error, got: %v", err)
	}
}
