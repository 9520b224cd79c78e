// Package workspace prepares the working directories of an indexing session.
package workspace

import (
	"fmt"
	"os"
)

// Prepare removes each directory with all of its contents and recreates it
// empty.
func Prepare(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clearing directory %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
