package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Triage.StabilityThreshold != 70 {
		t.Errorf("Expected stability threshold 70, got %d", cfg.Triage.StabilityThreshold)
	}
	if cfg.Triage.EmergencyInterval != 15*time.Second {
		t.Errorf("Expected emergency interval 15s, got %v", cfg.Triage.EmergencyInterval)
	}
	if cfg.Triage.PowerSaveInterval != 5*time.Minute {
		t.Errorf("Expected power-save interval 5m, got %v", cfg.Triage.PowerSaveInterval)
	}
	if cfg.Triage.RosterPollInterval != 30*time.Second {
		t.Errorf("Expected roster poll interval 30s, got %v", cfg.Triage.RosterPollInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TRIAGE_EMERGENCY_INTERVAL", "5s")
	t.Setenv("TRIAGE_SHORTAGE_HIGH_RATIO", "0.75")
	t.Setenv("EHR_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Triage.EmergencyInterval != 5*time.Second {
		t.Errorf("Expected emergency interval 5s, got %v", cfg.Triage.EmergencyInterval)
	}
	if cfg.Triage.ShortageHighRatio != 0.75 {
		t.Errorf("Expected shortage ratio 0.75, got %v", cfg.Triage.ShortageHighRatio)
	}
	if !cfg.EHR.Enabled {
		t.Error("Expected EHR adapter enabled")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "u",
		Password: "p",
		Database: "vitalwatch",
		SSLMode:  "require",
	}

	want := "host=db port=5433 user=u password=p dbname=vitalwatch sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("Expected DSN %q, got %q", want, got)
	}
}
