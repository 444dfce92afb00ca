package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"serve", "migrate", "sweep"} {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestMigrateSubcommands(t *testing.T) {
	cmd := buildMigrateCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"up", "down", "version"} {
		if !names[name] {
			t.Fatalf("expected migrate subcommand %q", name)
		}
	}
}

func TestMigrationURLRejectsMemoryStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "memory")
	if _, err := migrationURL(); err == nil {
		t.Fatal("expected an error for the in-memory store")
	}
}
