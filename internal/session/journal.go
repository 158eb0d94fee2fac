package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrNoSession is returned when a session id is not known.
var ErrNoSession = errors.New("no such session")

// Journal statuses. Active and paused mirror the engine; closed means the
// artifact was kept when the session ended.
const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusClosed = "closed"
)

// Record is the journalled snapshot of one engine run.
type Record struct {
	RunID   string    `json:"run_id"`
	ID      string    `json:"id"` // current artifact path
	Mode    string    `json:"mode"`
	Count   int       `json:"count"`
	Size    string    `json:"size"`
	Parts   []string  `json:"parts,omitempty"`
	Status  string    `json:"status"`
	TempDir string    `json:"temp_dir,omitempty"`
	Started time.Time `json:"started"`
	Updated time.Time `json:"updated"`
}

// Open reports whether the run had not ended when the record was written.
func (r Record) Open() bool {
	return r.Status == StatusActive || r.Status == StatusPaused
}

// Journal persists session records across runs.
type Journal interface {
	Put(r Record) error
	List() ([]Record, error)
	Get(runID string) (Record, error) // returns ErrNoSession if unknown
	Remove(runID string) error
}

// diskJournal keeps every record in one JSON file.
type diskJournal struct {
	mu   sync.Mutex
	path string // full path to sessions.json
}

// NewJournal returns a Journal backed by the XDG data directory.
// Path: $XDG_DATA_HOME/click/sessions.json or ~/.local/share/click/sessions.json
func NewJournal() (Journal, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	return OpenJournal(filepath.Join(dir, "sessions.json"))
}

// OpenJournal returns a Journal stored at path.
func OpenJournal(path string) (Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskJournal{path: path}, nil
}

// DataDir returns the click-specific XDG data directory.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "click"), nil
}

// Put inserts or replaces the record with r.RunID.
func (d *diskJournal) Put(r Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].RunID == r.RunID {
			all[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, r)
	}
	return d.write(all)
}

// List returns every record, oldest first.
func (d *diskJournal) List() ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.read()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Started.Before(all[j].Started) })
	return all, nil
}

func (d *diskJournal) Get(runID string) (Record, error) {
	all, err := d.List()
	if err != nil {
		return Record{}, err
	}
	for _, r := range all {
		if r.RunID == runID {
			return r, nil
		}
	}
	return Record{}, ErrNoSession
}

// Remove deletes the record with runID. Unknown ids are not an error.
func (d *diskJournal) Remove(runID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.read()
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, r := range all {
		if r.RunID != runID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(all) {
		return nil
	}
	return d.write(kept)
}

func (d *diskJournal) read() ([]Record, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session journal: %w", err)
	}
	var all []Record
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse session journal: %w", err)
	}
	return all, nil
}

// write marshals all and replaces the journal atomically via a temp file +
// os.Rename.
func (d *diskJournal) write(all []Record) (err error) {
	if all == nil {
		all = []Record{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist session journal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), "sessions-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist session journal: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist session journal: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist session journal: %w", err)
	}
	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist session journal: %w", err)
	}
	return nil
}

// Prune removes records whose artifact is gone and whose run has ended or
// went quiet more than StaleAfter ago, and returns them.
func Prune(j Journal) ([]Record, error) {
	all, err := j.List()
	if err != nil {
		return nil, err
	}
	var pruned []Record
	for _, r := range all {
		if r.Open() && time.Since(r.Updated) < StaleAfter {
			continue
		}
		if _, err := os.Stat(r.ID); err == nil {
			continue
		}
		if err := j.Remove(r.RunID); err != nil {
			return pruned, err
		}
		pruned = append(pruned, r)
	}
	return pruned, nil
}
