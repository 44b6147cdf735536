package workers

import (
	"testing"
)

func TestCountMinimumOne(t *testing.T) {
	if got := Count(0.01, 0); got < 1 {
		t.Errorf("Count(0.01, 0) = %d, want >= 1", got)
	}
}

func TestCountRespectsLimit(t *testing.T) {
	if got := Count(100.0, 4); got != 4 {
		t.Errorf("Count(100.0, 4) = %d, want 4", got)
	}
}

func TestCountOverride(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "7")
	if got := Count(1.0, 0); got != 7 {
		t.Errorf("Count with SCAN_WORKERS=7 = %d, want 7", got)
	}
}

func TestCountOverrideCapped(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "64")
	if got := Count(1.0, 8); got != 8 {
		t.Errorf("Count with SCAN_WORKERS=64, limit 8 = %d, want 8", got)
	}
}

func TestCountIgnoresInvalidOverride(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "not-a-number")
	if got := Count(1.0, 0); got < 1 {
		t.Errorf("Count with invalid override = %d, want >= 1", got)
	}
}

func TestForIO(t *testing.T) {
	if got := ForIO(0); got < 1 {
		t.Errorf("ForIO(0) = %d, want >= 1", got)
	}
}
