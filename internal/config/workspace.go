package config

import (
	"os"
	"path/filepath"
)

// FileNames are the configuration files looked up in a workspace, in order.
var FileNames = []string{".mend.yaml", ".mend.yml", ".mend.toml"}

// FindWorkspaceRoot walks up from start looking for a mend config file, then
// a .git directory or go.mod. It returns start when nothing is found.
func FindWorkspaceRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	markers := append(append([]string{}, FileNames...), ".git", "go.mod")
	original := dir
	for {
		for _, m := range markers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return original, nil
}

// DefaultPath returns the first existing config file in root, or the YAML
// name when there is none.
func DefaultPath(root string) string {
	for _, name := range FileNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(root, FileNames[0])
}
