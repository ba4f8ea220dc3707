package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetWorkloadWeightActiveLeads() != 2 || cfg.GetWorkloadWeightPendingTasks() != 1 || cfg.GetWorkloadWeightOverdueTasks() != 3 {
		t.Errorf("unexpected default weights: %d/%d/%d",
			cfg.GetWorkloadWeightActiveLeads(), cfg.GetWorkloadWeightPendingTasks(), cfg.GetWorkloadWeightOverdueTasks())
	}
	if cfg.GetOverdueSweepCron() != "@every 5m" {
		t.Errorf("expected default sweep cron, got %q", cfg.GetOverdueSweepCron())
	}
	if cfg.GetAssignmentLockTTL() != 10*time.Second {
		t.Errorf("expected 10s lock ttl, got %s", cfg.GetAssignmentLockTTL())
	}
	if cfg.GetNATSSubjectPrefix() != "pipeline" {
		t.Errorf("expected pipeline subject prefix, got %q", cfg.GetNATSSubjectPrefix())
	}
}

func TestLoadRulesRejectsNegativeWeights(t *testing.T) {
	t.Setenv("WORKLOAD_WEIGHT_OVERDUE_TASKS", "-1")

	if _, err := LoadRules(); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestAssignmentSerializationNeedsRedis(t *testing.T) {
	cfg := &Config{AssignmentSerialize: true}
	if cfg.IsAssignmentSerialized() {
		t.Error("serialization must be off without REDIS_URL")
	}
	cfg.RedisURL = "redis://localhost:6379"
	if !cfg.IsAssignmentSerialized() {
		t.Error("serialization should be on with REDIS_URL")
	}
}

func TestWildcardOriginEnablesAllowAll(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example, *")

	cfg, err := LoadRules()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GetCORSAllowAll() {
		t.Error("expected wildcard origin to enable allow-all")
	}
}
