package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carbon-audio/audiopolicy/internal/focus"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
)

func TestNewWatcherAppliesInitialValue(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, settingsFileName), []byte(`{"reject_nav_on_call": true}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := focus.DefaultInteractionMatrix(false)
	w := NewWatcher(dir, m)
	defer w.Close()

	if got := m.Lookup(usagecontext.ContextCall, usagecontext.ContextNavigation); got != focus.Reject {
		t.Fatalf("expected Reject after initial load, got %v", got)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, settingsFileName)
	if err := os.WriteFile(path, []byte(`{"reject_nav_on_call": false}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := focus.DefaultInteractionMatrix(false)
	w := NewWatcher(dir, m)
	defer w.Close()

	if err := os.WriteFile(path, []byte(`{"reject_nav_on_call": true}`), 0o644); err != nil {
		t.Fatalf("WriteFile rewrite: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Lookup(usagecontext.ContextCall, usagecontext.ContextNavigation) == focus.Reject {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher did not observe file change within deadline")
}
