// Package edit opens the posecast configuration in the user's editor.
package edit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"posecast/pkg/config"
)

// ensureFile writes config.Template to path unless a file is already there.
// It reports whether the file was created.
func ensureFile(path string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(config.Template), 0644); err != nil {
		return false, fmt.Errorf("writing default config: %w", err)
	}
	return true, nil
}

// findEditor returns $EDITOR, or the first of vi, nano and vim on PATH.
func findEditor() (string, error) {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor, nil
	}
	for _, e := range []string{"vi", "nano", "vim"} {
		if _, err := exec.LookPath(e); err == nil {
			return e, nil
		}
	}
	return "", fmt.Errorf("no editor found ($EDITOR environment variable not set, and vi/nano/vim not in PATH)")
}

// Run opens path in the system editor, creating it from the template first
// if needed. The edited file is parsed afterwards so mistakes surface here
// rather than at the next start.
func Run(path string) error {
	created, err := ensureFile(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Creating new config file at %s...\n", path)
	}

	editor, err := findEditor()
	if err != nil {
		return err
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", editor, err)
	}

	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("config saved but invalid: %w", err)
	}
	return nil
}
