// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/photoflow/core"
)

// Entry is the persisted record for one item. An item has exactly one
// entry, keyed by fingerprint; every name the item was ever seen under
// resolves to it.
type Entry struct {
	Name        string            `json:"name"`
	Fingerprint string            `json:"fingerprint"`
	Stage       string            `json:"stage"`
	TargetName  string            `json:"target_name,omitempty"`
	FirstSeen   time.Time         `json:"first_seen"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// line is the on-disk union of record kinds. The ledger file is JSON
// Lines: one record per line, entries first, then aliases.
type line struct {
	Kind      string `json:"kind"`
	Entry     *Entry `json:"entry,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Canonical string `json:"canonical,omitempty"`
}

const (
	lineKindEntry = "entry"
	lineKindAlias = "alias"
)

// Ledger answers "has item X already reached stage S" and records
// stage transitions durably. Lookups vastly outnumber writes, so
// in-memory state is guarded by a reader/writer lock; the lock is
// never held across file I/O.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*Entry // fingerprint hex -> entry
	byName  map[string]string // every seen name -> fingerprint hex
	aliases map[string]string // alias name -> canonical name

	fileMu sync.Mutex // serializes snapshot writes
	path   string     // empty means in-memory only
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// withClock overrides the time source. Used by tests.
func withClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Open loads a ledger from path, creating parent directories as
// needed. An empty path keeps the ledger in memory only. A read
// failure degrades to an empty ledger with a loud warning rather than
// refusing to start: re-processing is wasteful but safe, since
// fingerprint dedup catches true duplicates at the next stage.
func Open(path string, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		entries: make(map[string]*Entry),
		byName:  make(map[string]string),
		aliases: make(map[string]string),
		path:    path,
		logger:  slog.Default().With("component", "ledger"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if path == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		l.logger.Warn("ledger unreadable, starting empty; previously processed items may be re-processed",
			"path", path, "err", err)
		return l, nil
	}
	defer f.Close()

	if err := l.load(f); err != nil {
		l.logger.Warn("ledger corrupt, starting empty; previously processed items may be re-processed",
			"path", path, "err", err)
		l.entries = make(map[string]*Entry)
		l.byName = make(map[string]string)
		l.aliases = make(map[string]string)
	}

	l.logger.Info("ledger loaded", "entries", len(l.entries), "aliases", len(l.aliases))
	return l, nil
}

func (l *Ledger) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec line
		if err := json.Unmarshal(raw, &rec); err != nil {
			l.logger.Warn("skipping malformed ledger line", "line", n, "err", err)
			continue
		}

		switch rec.Kind {
		case lineKindEntry:
			if rec.Entry == nil || rec.Entry.Fingerprint == "" {
				l.logger.Warn("skipping entry without fingerprint", "line", n)
				continue
			}
			e := rec.Entry
			l.entries[e.Fingerprint] = e
			l.byName[e.Name] = e.Fingerprint
			if e.TargetName != "" {
				l.byName[e.TargetName] = e.Fingerprint
			}
		case lineKindAlias:
			if rec.Alias != "" && rec.Canonical != "" {
				l.aliases[rec.Alias] = rec.Canonical
			}
		default:
			l.logger.Warn("skipping ledger line of unknown kind", "line", n, "kind", rec.Kind)
		}
	}
	return scanner.Err()
}

// resolveLocked maps a name through the alias table and returns the
// entry it designates, trying fingerprint identity first. Caller holds
// at least a read lock.
func (l *Ledger) resolveLocked(nameOrFingerprint string) *Entry {
	key := nameOrFingerprint
	if canonical, ok := l.aliases[key]; ok {
		key = canonical
	}
	if e, ok := l.entries[key]; ok {
		return e
	}
	if fp, ok := l.byName[key]; ok {
		return l.entries[fp]
	}
	return nil
}

// HasReachedStage reports whether the item identified by name or
// fingerprint has reached the given stage. No side effects.
func (l *Ledger) HasReachedStage(nameOrFingerprint string, stage core.Stage) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e := l.resolveLocked(nameOrFingerprint)
	if e == nil {
		return false
	}
	reached, err := core.ParseStage(e.Stage)
	if err != nil {
		return false
	}
	return reached >= stage
}

// RecordStage records that the item reached a stage. Idempotent:
// recording the same (name, fingerprint, stage) again overwrites
// attributes without duplicating the entry, and an item's stage is
// monotonic, never regressed. A persistence failure is returned to the
// caller; silently forgetting a processed item risks duplicate costly
// inference calls or duplicate publishes.
func (l *Ledger) RecordStage(name string, fp core.ContentFingerprint, stage core.Stage, attrs map[string]string) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidStage, int(stage))
	}
	if fp.IsZero() {
		return ErrFingerprintRequired
	}

	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.Lock()
	key := fp.String()
	now := l.now().UTC()

	e, ok := l.entries[key]
	if !ok {
		e = &Entry{
			Name:        name,
			Fingerprint: key,
			Stage:       stage.String(),
			FirstSeen:   now,
		}
		l.entries[key] = e
	} else if prev, err := core.ParseStage(e.Stage); err == nil && prev > stage {
		// Never regress; keep the furthest stage reached.
	} else {
		e.Stage = stage.String()
	}
	e.UpdatedAt = now
	for k, v := range attrs {
		if e.Attributes == nil {
			e.Attributes = make(map[string]string, len(attrs))
		}
		e.Attributes[k] = v
	}
	l.byName[name] = key
	if e.Name != name {
		// A second name for the same content. The join must be written
		// out, not just indexed in memory, or lookups by this name stop
		// working after a restart.
		l.aliases[name] = e.Name
	}

	snapshot, err := l.snapshotLocked()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	return l.persist(snapshot)
}

// MapAlias registers that targetName refers to the same identity as
// originalName, so stage lookups by either name resolve to the same
// entry.
func (l *Ledger) MapAlias(originalName, targetName string) error {
	if originalName == "" || targetName == "" {
		return ErrEmptyName
	}

	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.Lock()
	l.aliases[targetName] = originalName
	if fp, ok := l.byName[originalName]; ok {
		l.byName[targetName] = fp
		if e := l.entries[fp]; e != nil {
			e.TargetName = targetName
		}
	}

	snapshot, err := l.snapshotLocked()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	return l.persist(snapshot)
}

// TargetName returns the publish-stage name an original name was
// mapped to, if any.
func (l *Ledger) TargetName(originalName string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e := l.resolveLocked(originalName)
	if e == nil || e.TargetName == "" {
		return "", false
	}
	return e.TargetName, true
}

// Entry returns a copy of the entry the given name or fingerprint
// resolves to.
func (l *Ledger) Entry(nameOrFingerprint string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e := l.resolveLocked(nameOrFingerprint)
	if e == nil {
		return Entry{}, false
	}
	out := *e
	if e.Attributes != nil {
		out.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			out.Attributes[k] = v
		}
	}
	return out, true
}

// TargetNames returns every target name assigned so far. Used to pick
// the next free sequence number when naming uploads.
func (l *Ledger) TargetNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if e.TargetName != "" {
			names = append(names, e.TargetName)
		}
	}
	return names
}

// StageCounts returns the number of entries currently at each stage.
func (l *Ledger) StageCounts() map[core.Stage]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[core.Stage]int)
	for _, e := range l.entries {
		if stage, err := core.ParseStage(e.Stage); err == nil {
			counts[stage]++
		}
	}
	return counts
}

// Len returns the number of distinct items in the ledger.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Purge removes all entries and aliases. Administrative use only.
func (l *Ledger) Purge() error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.Lock()
	l.entries = make(map[string]*Entry)
	l.byName = make(map[string]string)
	l.aliases = make(map[string]string)
	snapshot, err := l.snapshotLocked()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.logger.Info("ledger purged")
	return l.persist(snapshot)
}

// snapshotLocked serializes the current state to JSON Lines. Caller
// holds the state lock; no I/O happens here.
func (l *Ledger) snapshotLocked() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, e := range l.entries {
		if err := enc.Encode(line{Kind: lineKindEntry, Entry: e}); err != nil {
			return nil, fmt.Errorf("encoding ledger entry: %w", err)
		}
	}
	for alias, canonical := range l.aliases {
		if err := enc.Encode(line{Kind: lineKindAlias, Alias: alias, Canonical: canonical}); err != nil {
			return nil, fmt.Errorf("encoding ledger alias: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// persist writes a snapshot atomically: write to a temp file in the
// same directory, then rename over the ledger file, so a crash never
// leaves a truncated ledger. Caller holds fileMu.
func (l *Ledger) persist(snapshot []byte) error {
	if l.path == "" {
		return nil
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Fingerprint computes the content fingerprint of a payload stream.
// Convenience re-export so callers recording stages don't need to
// import core separately.
func Fingerprint(r io.Reader) (core.ContentFingerprint, error) {
	return core.FingerprintReader(r)
}
