// Package scaffold writes a starter project: configuration, a settings tree
// for every registered locale and a default email template.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/mailform/internal/config"
)

//go:embed skeleton
var skeleton embed.FS

const root = "skeleton"

// Result lists what Write did
type Result struct {
	Written []string
	Skipped []string
}

// Files returns the relative paths of the embedded skeleton
func Files() ([]string, error) {
	var files []string
	err := fs.WalkDir(skeleton, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := p[len(root)+1:]
		files = append(files, rel)
		return nil
	})
	return files, err
}

// Write creates the starter project in dir. Existing files are kept unless force is set.
func Write(dir string, force bool) (*Result, error) {
	res := &Result{}

	files, err := Files()
	if err != nil {
		return nil, fmt.Errorf("failed to read skeleton: %w", err)
	}

	for _, rel := range files {
		content, err := skeleton.ReadFile(path.Join(root, rel))
		if err != nil {
			return nil, err
		}
		if err := res.write(filepath.Join(dir, filepath.FromSlash(rel)), content, force); err != nil {
			return nil, err
		}
	}

	if err := res.write(filepath.Join(dir, config.FileNames[0]), []byte(config.DefaultTemplate()), force); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Result) write(target string, content []byte, force bool) error {
	if _, err := os.Stat(target); err == nil && !force {
		log.Debug("Keeping existing file", "path", target)
		r.Skipped = append(r.Skipped, target)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	r.Written = append(r.Written, target)
	return nil
}
