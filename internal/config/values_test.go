package config

import "testing"

func TestGetSetValueRoundTrip(t *testing.T) {
	cfg := Default()

	if err := cfg.SetValue("behavior.port_range_start", "60100"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	got, err := cfg.GetValue("behavior.port_range_start")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if got != "60100" {
		t.Errorf("got %q, want 60100", got)
	}

	if err := cfg.SetValue("behavior.disabled", "true"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	got, _ = cfg.GetValue("behavior.disabled")
	if got != "true" {
		t.Errorf("got %q, want true", got)
	}

	if err := cfg.SetValue("git.disabled_branches", "a,b,c"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	got, _ = cfg.GetValue("git.disabled_branches")
	if got != "a, b, c" {
		t.Errorf("got %q, want %q", got, "a, b, c")
	}
}

func TestGetValueUnknownKey(t *testing.T) {
	cfg := Default()
	if _, err := cfg.GetValue("nonexistent.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetValueDuration(t *testing.T) {
	cfg := Default()
	if err := cfg.SetValue("behavior.operation_timeout", "45s"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	got, _ := cfg.GetValue("behavior.operation_timeout")
	if got != "45s" {
		t.Errorf("got %q, want 45s", got)
	}
}
