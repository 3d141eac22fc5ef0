package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"champr/internal/jsdelivr"

	json "github.com/goccy/go-json"
)

// ErrUnsafePath is returned when a source or champion would place a file
// outside the output root
var ErrUnsafePath = errors.New("unsafe output path")

// Writer persists item builds under a fixed output root
type Writer struct {
	root string
}

// NewWriter creates a writer rooted at root
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Root returns the output root
func (w *Writer) Root() string {
	return w.root
}

// CheckName rejects identifiers that cannot be used as a single path element
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) ||
		filepath.VolumeName(name) != "" {
		return fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return nil
}

// Path returns {root}/{champion}/{source}-{champion}-{buildIndex}-{blockIndex}.json
func (w *Writer) Path(source, champion string, buildIndex, blockIndex int) (string, error) {
	if err := CheckName(source); err != nil {
		return "", err
	}
	if err := CheckName(champion); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s-%s-%d-%d.json", source, champion, buildIndex, blockIndex)
	path := filepath.Join(w.root, champion, filename)
	if err := w.contains(path); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) contains(path string) error {
	rel, err := filepath.Rel(filepath.Clean(w.root), path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s is outside %s", ErrUnsafePath, path, w.root)
	}
	return nil
}

// Write serializes build to path, creating parent directories as needed and
// replacing any existing file. path must lie under the output root.
func (w *Writer) Write(path string, build jsdelivr.ItemBuild) error {
	if err := w.contains(filepath.Clean(path)); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.Marshal(build)
	if err != nil {
		return fmt.Errorf("failed to marshal item build: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
