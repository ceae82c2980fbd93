// Package mallocconfig hot-reloads the allocator's debug-tracing config
// from a JSON file so EnableDebug (internal/allocator.Config) can be
// flipped without restarting whatever process embeds mmalloc. The file is
// watched with fsnotify, and its schema_version is checked against a
// semver constraint.
package mallocconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/fsnotify/fsnotify"
)

// supportedSchemaRange is the set of config schema_version values this
// package knows how to interpret. Bumping the major version here is a
// breaking change to the file format.
const supportedSchemaRange = ">= 1.0.0, < 2.0.0"

// DebugConfig is the subset of allocator.Config this package can toggle
// live.
type DebugConfig struct {
	Debug bool
}

type fileFormat struct {
	SchemaVersion string `json:"schema_version"`
	Debug         bool   `json:"debug"`
}

// Load reads and validates a config file once, without watching it.
func Load(path string) (DebugConfig, error) {
	constraint, err := semver.NewConstraint(supportedSchemaRange)
	if err != nil {
		return DebugConfig{}, fmt.Errorf("mallocconfig: bad built-in constraint: %w", err)
	}

	return load(path, constraint)
}

func load(path string, constraint *semver.Constraints) (DebugConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DebugConfig{}, fmt.Errorf("mallocconfig: read %s: %w", path, err)
	}

	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return DebugConfig{}, fmt.Errorf("mallocconfig: parse %s: %w", path, err)
	}

	v, err := semver.NewVersion(raw.SchemaVersion)
	if err != nil {
		return DebugConfig{}, fmt.Errorf("mallocconfig: invalid schema_version %q: %w", raw.SchemaVersion, err)
	}

	if !constraint.Check(v) {
		return DebugConfig{}, fmt.Errorf("mallocconfig: schema_version %s is not in supported range %s", v, supportedSchemaRange)
	}

	return DebugConfig{Debug: raw.Debug}, nil
}

// Watcher watches a config file for changes and invokes onChange with the
// freshly parsed, schema-checked config each time it is rewritten.
// Malformed or incompatible rewrites are ignored — the last good config
// stays in effect — rather than tearing down the watch.
type Watcher struct {
	path       string
	constraint *semver.Constraints
	fsw        *fsnotify.Watcher
	onChange   func(DebugConfig)
}

// NewWatcher starts watching path's parent directory and calls onChange
// every time path is written with a valid, schema-compatible config.
func NewWatcher(path string, onChange func(DebugConfig)) (*Watcher, error) {
	constraint, err := semver.NewConstraint(supportedSchemaRange)
	if err != nil {
		return nil, fmt.Errorf("mallocconfig: bad built-in constraint: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("mallocconfig: create watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("mallocconfig: watch %s: %w", path, err)
	}

	w := &Watcher{path: path, constraint: constraint, fsw: fsw, onChange: onChange}
	go w.loop()

	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := load(w.path, w.constraint)
			if err != nil {
				continue // last good config stays in effect
			}

			w.onChange(cfg)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
