package file

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/malonaz/polychat/internal/types"
)

// Attach returns a reference to the file at the given path.
// The content is not read into the reference, only sniffed for its MIME type.
func Attach(path string) (*types.File, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	info, err := os.Stat(absolutePath)
	if err != nil {
		return nil, fmt.Errorf("stating file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", absolutePath)
	}
	mime, err := mimetype.DetectFile(absolutePath)
	if err != nil {
		return nil, fmt.Errorf("detecting mime type: %w", err)
	}
	handle := &url.URL{Scheme: "file", Path: filepath.ToSlash(absolutePath)}
	return &types.File{
		ID:   uuid.NewString(),
		Name: info.Name(),
		Size: info.Size(),
		Type: mime.String(),
		URL:  handle.String(),
	}, nil
}

// AttachAll attaches every path, failing on the first error.
func AttachAll(paths []string) ([]*types.File, error) {
	files := make([]*types.File, 0, len(paths))
	for _, path := range paths {
		f, err := Attach(path)
		if err != nil {
			return nil, fmt.Errorf("attaching %s: %w", path, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// ExpandPath expands a path to avoid `~`.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home dir: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// CreateDirectoryIfNotExist creates a directory if it doesn't already exist.
func CreateDirectoryIfNotExist(directory string) error {
	ok, err := DirectoryExists(directory)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return nil
}

// DirectoryExists returns true if the specified directory exists.
func DirectoryExists(directory string) (bool, error) {
	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking directory existence: %w", err)
	}
	return info.IsDir(), nil
}
