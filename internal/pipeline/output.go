package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// ErrUnsafeOutputRoot is returned for output roots that must never be purged
var ErrUnsafeOutputRoot = errors.New("unsafe output root")

// PrepareOutput deletes the whole output tree unless keepOld is set. A missing
// root is not an error.
func PrepareOutput(root string, keepOld bool) error {
	if root == "" {
		return fmt.Errorf("%w: empty path", ErrUnsafeOutputRoot)
	}
	if keepOld {
		return nil
	}

	clean := filepath.Clean(root)
	if clean == "." || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrUnsafeOutputRoot, root)
	}

	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat output root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnsafeOutputRoot, clean)
	}

	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("failed to empty output root %s: %w", clean, err)
	}
	log.Printf("[Output] Emptied old dir: %s", clean)
	return nil
}
