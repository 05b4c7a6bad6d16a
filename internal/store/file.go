package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
)

// SchemaVersion is written to every state file.
const SchemaVersion = "1.0.0"

// supportedSchema accepts every 1.x file.
const supportedSchema = "^1.0.0"

// fileData is the serialized form of the state file.
type fileData struct {
	SchemaVersion string                `json:"schemaVersion"`
	Activities    []ledger.Activity     `json:"activities"`
	Goals         []goals.Goals         `json:"goals"`
	Insights      []advisor.Insight     `json:"insights"`
	Achievements  []advisor.Achievement `json:"achievements"`
}

// File is a Memory backend mirrored to a single JSON file. Every write
// re-reads the file, applies the change and rewrites it atomically, all under
// a cross-process lockfile. Reads reload the file when another process has
// replaced it.
type File struct {
	*Memory

	filePath string
	// loaded describes the file the in-memory state was read from or last
	// written to; nil when no file existed. Guarded by Memory.mu.
	loaded os.FileInfo
}

// DefaultFilePath returns ~/.ecolife/ledger.json.
func DefaultFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ecolife", "ledger.json"), nil
}

// OpenFile loads filePath, or starts empty if it does not exist. An empty
// path means DefaultFilePath. A corrupt or unsupported file returns
// ErrStoreCorrupted.
func OpenFile(filePath string) (*File, error) {
	if filePath == "" {
		var err error
		if filePath, err = DefaultFilePath(); err != nil {
			return nil, err
		}
	}
	f := &File{Memory: NewMemory(), filePath: filePath}
	if err := f.load(); err != nil {
		return nil, err
	}
	f.Memory.tx = f.transact
	f.Memory.refresh = f.refresh
	return f, nil
}

// FilePath returns the state file location.
func (f *File) FilePath() string {
	return f.filePath
}

func (f *File) lockFilePath() string {
	return f.filePath + ".lock"
}

// acquireFileLock creates an exclusive lockfile holding our PID and returns
// its release function. Locks older than 30s whose owner is gone are broken.
func (f *File) acquireFileLock() (func(), error) {
	lockPath := f.lockFilePath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	const maxRetries = 10
	const retryDelay = 100 * time.Millisecond
	const staleLockAge = 30 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = fmt.Fprintf(lf, "%d", os.Getpid())
			_ = lf.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if removeStaleLock(lockPath, staleLockAge) {
			continue
		}
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("could not acquire lock on %s after retries", lockPath)
}

func removeStaleLock(lockPath string, staleLockAge time.Duration) bool {
	info, statErr := os.Stat(lockPath)
	if statErr != nil || time.Since(info.ModTime()) <= staleLockAge {
		return false
	}
	if isLockHeldByLiveProcess(lockPath) {
		return false
	}
	_ = os.Remove(lockPath)
	return true
}

func isLockHeldByLiveProcess(lockPath string) bool {
	pidData, readErr := os.ReadFile(lockPath)
	if readErr != nil || len(pidData) == 0 {
		return false
	}
	var pid int
	if _, scanErr := fmt.Sscanf(string(pidData), "%d", &pid); scanErr != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}

// checkSchema rejects files written by an incompatible major version.
func checkSchema(version string) error {
	if version == "" {
		return fmt.Errorf("%w: missing schemaVersion", ErrStoreCorrupted)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: invalid schemaVersion %q: %w", ErrStoreCorrupted, version, err)
	}
	constraint, err := semver.NewConstraint(supportedSchema)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: unsupported schemaVersion %s (want %s)", ErrStoreCorrupted, v, supportedSchema)
	}
	return nil
}

func (f *File) load() error {
	unlock, lockErr := f.acquireFileLock()
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	st, info, err := f.readState()
	if err != nil {
		return err
	}
	f.Memory.mu.Lock()
	f.Memory.st, f.loaded = st, info
	f.Memory.mu.Unlock()
	return nil
}

// readState parses the state file. A missing file is an empty state with nil
// info. Callers hold the lockfile.
func (f *File) readState() (*state, os.FileInfo, error) {
	info, err := os.Stat(f.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newState(), nil, nil
		}
		return nil, nil, fmt.Errorf("reading state file: %w", err)
	}
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading state file: %w", err)
	}

	var fd fileData
	if unmarshalErr := json.Unmarshal(data, &fd); unmarshalErr != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrStoreCorrupted, unmarshalErr)
	}
	if schemaErr := checkSchema(fd.SchemaVersion); schemaErr != nil {
		return nil, nil, schemaErr
	}

	st := newState()
	for _, a := range fd.Activities {
		st.activities[a.ID] = a
	}
	for _, g := range fd.Goals {
		st.goals[g.UserID] = g
	}
	for _, in := range fd.Insights {
		st.insights[in.ID] = in
	}
	for _, a := range fd.Achievements {
		byID, ok := st.achievements[a.UserID]
		if !ok {
			byID = map[advisor.BadgeID]advisor.Achievement{}
			st.achievements[a.UserID] = byID
		}
		byID[a.AchievementID] = a
	}
	return st, info, nil
}

// changedOnDisk reports whether the state file differs from the one last
// loaded or written. Saves replace the file by rename, so a new inode, size
// or modification time all mean another writer got there first.
func (f *File) changedOnDisk() (bool, error) {
	info, err := os.Stat(f.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f.loaded != nil, nil
		}
		return false, fmt.Errorf("checking state file: %w", err)
	}
	if f.loaded == nil {
		return true, nil
	}
	return !os.SameFile(f.loaded, info) ||
		!info.ModTime().Equal(f.loaded.ModTime()) ||
		info.Size() != f.loaded.Size(), nil
}

// reloadIfChanged replaces the in-memory state with the file's when they
// differ. Callers hold Memory.mu and the lockfile.
func (f *File) reloadIfChanged() error {
	changed, err := f.changedOnDisk()
	if err != nil || !changed {
		return err
	}
	st, info, err := f.readState()
	if err != nil {
		return err
	}
	f.Memory.st, f.loaded = st, info
	return nil
}

// refresh runs before reads with Memory.mu held. The lockfile is only taken
// when the file has changed.
func (f *File) refresh() error {
	changed, err := f.changedOnDisk()
	if err != nil || !changed {
		return err
	}
	unlock, lockErr := f.acquireFileLock()
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()
	return f.reloadIfChanged()
}

// transact runs fn against the latest on-disk state and writes the result,
// holding the lockfile throughout. Memory.mu is already held.
func (f *File) transact(fn func(st *state) error) error {
	unlock, lockErr := f.acquireFileLock()
	if lockErr != nil {
		return fmt.Errorf("acquiring file lock: %w", lockErr)
	}
	defer unlock()

	if err := f.reloadIfChanged(); err != nil {
		return err
	}
	next := f.Memory.st.clone()
	if err := fn(next); err != nil {
		return err
	}
	info, err := f.save(next)
	if err != nil {
		return err
	}
	f.Memory.st, f.loaded = next, info
	return nil
}

// save writes st atomically and returns the new file's info. Callers hold
// the lockfile.
func (f *File) save(st *state) (os.FileInfo, error) {
	data, err := json.MarshalIndent(snapshot(st), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling state: %w", err)
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(f.filePath), 0o750); mkdirErr != nil {
		return nil, fmt.Errorf("creating state directory: %w", mkdirErr)
	}
	tmpPath := f.filePath + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return nil, fmt.Errorf("writing state temp file: %w", writeErr)
	}
	if renameErr := os.Rename(tmpPath, f.filePath); renameErr != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("renaming state temp file: %w", renameErr)
	}
	info, err := os.Stat(f.filePath)
	if err != nil {
		return nil, fmt.Errorf("checking state file: %w", err)
	}
	return info, nil
}

// snapshot flattens st into sorted slices so the file diffs cleanly.
func snapshot(st *state) fileData {
	fd := fileData{
		SchemaVersion: SchemaVersion,
		Activities:    make([]ledger.Activity, 0, len(st.activities)),
		Goals:         make([]goals.Goals, 0, len(st.goals)),
		Insights:      make([]advisor.Insight, 0, len(st.insights)),
		Achievements:  []advisor.Achievement{},
	}
	for _, a := range st.activities {
		fd.Activities = append(fd.Activities, a)
	}
	ledger.SortByDate(fd.Activities)
	for _, g := range st.goals {
		fd.Goals = append(fd.Goals, g)
	}
	sort.Slice(fd.Goals, func(i, j int) bool { return fd.Goals[i].UserID < fd.Goals[j].UserID })
	for _, in := range st.insights {
		fd.Insights = append(fd.Insights, in)
	}
	sort.Slice(fd.Insights, func(i, j int) bool { return fd.Insights[i].ID < fd.Insights[j].ID })
	for _, byID := range st.achievements {
		for _, a := range byID {
			fd.Achievements = append(fd.Achievements, a)
		}
	}
	sort.Slice(fd.Achievements, func(i, j int) bool {
		x, y := fd.Achievements[i], fd.Achievements[j]
		if x.UserID != y.UserID {
			return x.UserID < y.UserID
		}
		return x.AchievementID < y.AchievementID
	})
	return fd
}
