package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// gitignoreContent keeps personal ledger data out of version control while
// the project config stays tracked.
const gitignoreContent = `# EcoLife project-local data (auto-generated)
ledger.json
ledger.json.lock
ledger.json.tmp
cache/
*.log
`

// GitignoreContent returns the .gitignore written into project-local
// .ecolife/ directories.
func GitignoreContent() string {
	return gitignoreContent
}

// EnsureGitignore writes the project .gitignore into dir unless one is
// already there, and reports whether it wrote a file.
func EnsureGitignore(dir string) (bool, error) {
	path := filepath.Join(dir, ".gitignore")
	switch _, err := os.Stat(path); {
	case err == nil:
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return false, fmt.Errorf("creating %s: %w", dir, err)
	}
	//nolint:gosec // a .gitignore is meant to be readable by everyone.
	if err := os.WriteFile(path, []byte(gitignoreContent), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
