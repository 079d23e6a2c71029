package archive

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/newthinker/sepa/internal/core"
)

// Runs files backtest reports under <runID>/<name>.
type Runs struct {
	storage Storage
}

// NewRuns wraps a storage backend.
func NewRuns(s Storage) *Runs {
	return &Runs{storage: s}
}

// Save writes every file of one run in name order.
func (r *Runs) Save(ctx context.Context, runID string, files map[string][]byte) error {
	if err := checkRunID(runID); err != nil {
		return err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.storage.Write(ctx, path.Join(runID, name), files[name]); err != nil {
			return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("run %s, %s: %w", runID, name, err))
		}
	}
	return nil
}

// Load reads one file of a run.
func (r *Runs) Load(ctx context.Context, runID, name string) ([]byte, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	return r.storage.Read(ctx, path.Join(runID, name))
}

// Files lists the file names stored for a run.
func (r *Runs) Files(ctx context.Context, runID string) ([]string, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	paths, err := r.storage.List(ctx, runID+"/")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		if name, ok := strings.CutPrefix(p, runID+"/"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// List returns the stored run IDs in sorted order.
func (r *Runs) List(ctx context.Context) ([]string, error) {
	paths, err := r.storage.List(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, p := range paths {
		id, _, ok := strings.Cut(p, "/")
		if ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether any file of the run is stored.
func (r *Runs) Exists(ctx context.Context, runID string) (bool, error) {
	names, err := r.Files(ctx, runID)
	return len(names) > 0, err
}

// Delete removes every file of a run.
func (r *Runs) Delete(ctx context.Context, runID string) error {
	names, err := r.Files(ctx, runID)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := r.storage.Delete(ctx, path.Join(runID, name)); err != nil {
			return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("delete run %s, %s: %w", runID, name, err))
		}
	}
	return nil
}

func checkRunID(runID string) error {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return core.Errorf(core.ErrInvalidInput, "invalid run id %q", runID)
	}
	return nil
}
