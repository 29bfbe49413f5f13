// Copyright 2025 Poiesic Systems
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

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/index"
)

// Artifact file names inside a cache directory.
const (
	IndexFile      = "index.bin"
	MetadataFile   = "metadata.mus.zst"
	EmbeddingsFile = "embeddings.lz4"

	tempMarker = ".tmp-"
)

// Snapshot is everything needed to serve matches without rebuilding:
// the vector index and the record table, correlated by row.
type Snapshot struct {
	Index   *index.Flat
	Records []core.Record
}

// ArtifactStatus describes one artifact file.
type ArtifactStatus struct {
	Name     string
	Path     string
	Required bool
	Present  bool
	Size     int64
}

// CacheStatus summarizes a cache directory.
type CacheStatus struct {
	Dir       string
	Present   bool // every required artifact exists
	Artifacts []ArtifactStatus
	TotalSize int64
}

// Manager owns the artifact files in one cache directory.
type Manager struct {
	dir            string
	withEmbeddings bool
	logger         *slog.Logger
	mu             sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithoutEmbeddings stops the raw embeddings blob from being written or required.
func WithoutEmbeddings() ManagerOption {
	return func(m *Manager) {
		m.withEmbeddings = false
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager for dir. The directory is created on first Save.
func NewManager(dir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		dir:            dir,
		withEmbeddings: true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "cache", "dir", dir)
	return m
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name)
}

func (m *Manager) artifacts() []string {
	if m.withEmbeddings {
		return []string{IndexFile, MetadataFile, EmbeddingsFile}
	}
	return []string{IndexFile, MetadataFile}
}

// Exists reports whether every required artifact is present as a regular file.
// Any error while checking counts as absent.
func (m *Manager) Exists() bool {
	for _, name := range m.artifacts() {
		info, err := os.Stat(m.path(name))
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
	}
	return true
}

// Load reads and cross-checks all artifacts. Every failure is wrapped with core.ErrIndex.
func (m *Manager) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.load(ctx)
	if err != nil {
		m.logger.Error("failed to load cache", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrIndex, err)
	}
	m.logger.Info("loaded cache", "rows", snap.Index.Len(), "dim", snap.Index.Dim())
	return snap, nil
}

func (m *Manager) load(ctx context.Context) (*Snapshot, error) {
	if !m.Exists() {
		return nil, ErrCacheMissing
	}

	var idx *index.Flat
	err := m.read(IndexFile, func(r io.Reader) error {
		var err error
		idx, err = index.Decode(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", IndexFile, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(m.path(MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetadataFile, err)
	}
	records, err := DecodeRecordTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetadataFile, err)
	}
	if len(records) != idx.Len() {
		return nil, fmt.Errorf("%w: index has %d rows, metadata has %d", ErrCacheInconsistent, idx.Len(), len(records))
	}

	if m.withEmbeddings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var vectors [][]float32
		err := m.read(EmbeddingsFile, func(r io.Reader) error {
			var err error
			vectors, err = ReadEmbeddings(r)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EmbeddingsFile, err)
		}
		if len(vectors) != idx.Len() {
			return nil, fmt.Errorf("%w: index has %d rows, embeddings have %d", ErrCacheInconsistent, idx.Len(), len(vectors))
		}
		if len(vectors) > 0 && len(vectors[0]) != idx.Dim() {
			return nil, fmt.Errorf("%w: index dimension %d, embeddings dimension %d", ErrCacheInconsistent, idx.Dim(), len(vectors[0]))
		}
	}

	return &Snapshot{Index: idx, Records: records}, nil
}

// Save replaces the cache contents with snap. Stale artifacts are removed first
// and the index is published last.
func (m *Manager) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Index == nil {
		return fmt.Errorf("%w: empty snapshot", ErrCacheInconsistent)
	}
	if len(snap.Records) != snap.Index.Len() {
		return fmt.Errorf("%w: index has %d rows, snapshot has %d records", ErrCacheInconsistent, snap.Index.Len(), len(snap.Records))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	if err := m.removeAll(); err != nil {
		return err
	}

	if m.withEmbeddings {
		vectors := snap.Index.Vectors()
		if err := m.publish(EmbeddingsFile, func(w io.Writer) error {
			return WriteEmbeddings(w, vectors)
		}); err != nil {
			return fmt.Errorf("%s: %w", EmbeddingsFile, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	metadata := EncodeRecordTable(snap.Records)
	if err := m.publish(MetadataFile, func(w io.Writer) error {
		_, err := w.Write(metadata)
		return err
	}); err != nil {
		return fmt.Errorf("%s: %w", MetadataFile, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.publish(IndexFile, func(w io.Writer) error {
		_, err := snap.Index.WriteTo(w)
		return err
	}); err != nil {
		return fmt.Errorf("%s: %w", IndexFile, err)
	}

	m.logger.Info("saved cache", "rows", snap.Index.Len())
	return nil
}

// Clear removes every artifact and leftover temporary file. Clearing an empty
// or missing directory is not an error.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.removeAll(); err != nil {
		return err
	}
	m.logger.Info("cleared cache")
	return nil
}

// removeAll deletes artifacts index first, so the directory stops looking
// complete before anything else is touched.
func (m *Manager) removeAll() error {
	var errs []error
	for _, name := range []string{IndexFile, MetadataFile, EmbeddingsFile} {
		if err := os.Remove(m.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	temps, _ := filepath.Glob(filepath.Join(m.dir, "*"+tempMarker+"*"))
	for _, name := range temps {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	m.syncDir()
	return errors.Join(errs...)
}

// Status reports the presence and size of each artifact.
func (m *Manager) Status() CacheStatus {
	status := CacheStatus{Dir: m.dir, Present: true}
	required := make(map[string]bool)
	for _, name := range m.artifacts() {
		required[name] = true
	}

	for _, name := range []string{IndexFile, MetadataFile, EmbeddingsFile} {
		a := ArtifactStatus{Name: name, Path: m.path(name), Required: required[name]}
		if info, err := os.Stat(a.Path); err == nil && info.Mode().IsRegular() {
			a.Present = true
			a.Size = info.Size()
			status.TotalSize += a.Size
		}
		if a.Required && !a.Present {
			status.Present = false
		}
		status.Artifacts = append(status.Artifacts, a)
	}
	return status
}

// FormatSize renders a byte count with a binary unit, e.g. "1.5 MB".
func FormatSize(size int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", size)
	}
	return fmt.Sprintf("%.1f %s", value, units[unit])
}
