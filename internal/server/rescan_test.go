package server

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRescannerInvalidSpec(t *testing.T) {
	t.Parallel()

	if _, err := NewRescanner("not a cron spec", func() {}, nil); err == nil {
		t.Error("NewRescanner() error = nil, want error for invalid spec")
	}
}

func TestRescannerFires(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	rescanner, err := NewRescanner("@every 50ms", func() { fired.Add(1) }, nil)
	if err != nil {
		t.Fatalf("NewRescanner() error = %v, want nil", err)
	}

	rescanner.Start()
	defer rescanner.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Error("scheduled submit never fired")
	}
}
