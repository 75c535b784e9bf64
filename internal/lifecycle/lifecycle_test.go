package lifecycle

import (
	"testing"
	"time"
)

func TestShuttingDown(t *testing.T) {
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false initially")
	}
	SetShuttingDown(true)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false, want true after SetShuttingDown(true)")
	}
	SetShuttingDown(false)
}

func TestUptime(t *testing.T) {
	MarkStarted(time.Now().Add(-time.Minute))
	if up := Uptime(); up < time.Minute {
		t.Errorf("Uptime() = %v, want >= 1m", up)
	}
}
