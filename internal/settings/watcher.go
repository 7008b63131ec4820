// Package settings hot-reloads the one user-toggleable interaction
// setting (CALL×NAV reject) from a config file, the way the teacher's
// auth service watches its users file.
package settings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/carbon-audio/audiopolicy/internal/focus"
)

const settingsFileName = "interaction.json"

type document struct {
	RejectNavOnCall bool `json:"reject_nav_on_call"`
}

// Watcher reloads interaction.json on change and applies the toggle to
// every matrix it was constructed with.
type Watcher struct {
	configDir string
	matrices  []*focus.Matrix
	watcher   *fsnotify.Watcher
}

// NewWatcher constructs a Watcher over configDir/interaction.json,
// applying the current on-disk value (if any) to every matrix in
// matrices and starting a background reload loop. A missing file or an
// unavailable filesystem watcher is not fatal: the initial matrix
// values from DefaultInteractionMatrix remain in effect.
func NewWatcher(configDir string, matrices ...*focus.Matrix) *Watcher {
	w := &Watcher{configDir: configDir, matrices: matrices}

	if err := w.reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("settings: initial load failed", "err", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("settings: could not create fsnotify watcher", "err", err)
		return w
	}
	w.watcher = fw

	if err := fw.Add(configDir); err != nil {
		slog.Warn("settings: could not watch config dir", "err", err)
	}

	go w.watchLoop()
	return w
}

func (w *Watcher) path() string {
	return filepath.Join(w.configDir, settingsFileName)
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path())
	if err != nil {
		return err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for _, m := range w.matrices {
		m.SetCallNavReject(doc.RejectNavOnCall)
	}
	slog.Info("settings: applied interaction setting", "reject_nav_on_call", doc.RejectNavOnCall)
	return nil
}

// Close stops the background file watcher.
func (w *Watcher) Close() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) watchLoop() {
	path := w.path()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name == path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				if err := w.reload(); err != nil {
					slog.Warn("settings: failed to reload interaction setting", "err", err)
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("settings: watcher error", "err", err)
		}
	}
}
