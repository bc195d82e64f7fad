// Package checkpoint stores agent snapshots in a directory, keeping only the
// most recent ones.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zeu5/rl-trainer/core"
	"github.com/zeu5/rl-trainer/util"
)

const (
	// IndexFile names the latest checkpoint of a directory
	IndexFile = "checkpoint"
	prefix    = "ckpt-"
)

var ErrInvalidIndex = errors.New("invalid checkpoint index")

type index struct {
	Latest string   `json:"latest"`
	All    []string `json:"all"`
}

// Manager implements core.CheckpointStore over a directory
type Manager struct {
	dir       string
	maxToKeep int
	agent     core.Snapshotter
	seq       int
	kept      []string
}

var _ core.CheckpointStore = &Manager{}

// NewManager scans dir for existing checkpoints so that new ones continue the
// sequence. A maxToKeep below 1 keeps core.DefaultMaxToKeep checkpoints.
func NewManager(dir string, maxToKeep int, agent core.Snapshotter) (*Manager, error) {
	if maxToKeep < 1 {
		maxToKeep = core.DefaultMaxToKeep
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating checkpoint directory: %w", err)
	}
	existing, err := list(dir)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		dir:       dir,
		maxToKeep: maxToKeep,
		agent:     agent,
		kept:      make([]string, 0, maxToKeep+1),
	}
	for _, e := range existing {
		m.kept = append(m.kept, e.name)
		m.seq = e.seq
	}
	return m, nil
}

func (m *Manager) Dir() string {
	return m.dir
}

// Save writes the agent state to the next ckpt-<seq> file, points the index at
// it and removes the checkpoints beyond maxToKeep.
func (m *Manager) Save() (string, error) {
	name := prefix + strconv.Itoa(m.seq+1)
	path := filepath.Join(m.dir, name)
	if err := util.WriteFileAtomic(path, m.agent.SaveState); err != nil {
		return "", fmt.Errorf("error writing checkpoint %s: %w", name, err)
	}
	m.seq++
	m.kept = append(m.kept, name)

	var stale []string
	if len(m.kept) > m.maxToKeep {
		stale = m.kept[:len(m.kept)-m.maxToKeep]
		m.kept = append([]string{}, m.kept[len(m.kept)-m.maxToKeep:]...)
	}
	if err := util.SaveJson(filepath.Join(m.dir, IndexFile), index{Latest: name, All: m.kept}); err != nil {
		return "", fmt.Errorf("error writing checkpoint index: %w", err)
	}
	for _, s := range stale {
		if err := os.Remove(filepath.Join(m.dir, s)); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("error removing checkpoint %s: %w", s, err)
		}
	}
	return path, nil
}

// RestoreLatest loads the checkpoint named by the index of dir, or the highest
// numbered one when the index is missing. It returns false when dir holds no
// checkpoint.
func (m *Manager) RestoreLatest(dir string) (bool, error) {
	path, err := Latest(dir)
	if err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("error opening checkpoint: %w", err)
	}
	defer f.Close()
	if err := m.agent.LoadState(f); err != nil {
		return false, fmt.Errorf("error loading checkpoint %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// Latest returns the path of the most recent checkpoint in dir, or "" when
// there is none.
func Latest(dir string) (string, error) {
	bs, err := os.ReadFile(filepath.Join(dir, IndexFile))
	switch {
	case err == nil:
		var idx index
		if err := json.Unmarshal(bs, &idx); err != nil || !strings.HasPrefix(idx.Latest, prefix) {
			return "", fmt.Errorf("%s: %w", dir, ErrInvalidIndex)
		}
		path := filepath.Join(dir, filepath.Base(idx.Latest))
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	case !os.IsNotExist(err):
		return "", fmt.Errorf("error reading checkpoint index: %w", err)
	}

	existing, err := list(dir)
	if err != nil {
		return "", err
	}
	if len(existing) == 0 {
		return "", nil
	}
	return filepath.Join(dir, existing[len(existing)-1].name), nil
}

type entry struct {
	name string
	seq  int
}

// list returns the checkpoint files of dir ordered by sequence number
func list(dir string) ([]entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error listing checkpoints: %w", err)
	}
	out := make([]entry, 0)
	for _, f := range files {
		if f.IsDir() || !strings.HasPrefix(f.Name(), prefix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimPrefix(f.Name(), prefix))
		if err != nil || seq <= 0 {
			continue
		}
		out = append(out, entry{name: f.Name(), seq: seq})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out, nil
}
