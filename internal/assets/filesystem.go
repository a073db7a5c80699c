package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

// FilesystemLoader reads theme overrides from a site directory laid out as
// styles/<name>.css and templates/<name>.html. Reads go through an os.Root,
// so neither a name nor a symlink can reach outside the directory.
type FilesystemLoader struct {
	dir string
}

// NewFilesystemLoader returns ErrInvalidBasePath unless dir is an existing,
// openable directory.
func NewFilesystemLoader(dir string) (*FilesystemLoader, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	_ = root.Close()
	return &FilesystemLoader{dir: dir}, nil
}

func (f *FilesystemLoader) LoadStyle(name string) (string, error) {
	return f.load("styles", name, ".css", ErrStyleNotFound)
}

func (f *FilesystemLoader) LoadTemplate(name string) (string, error) {
	return f.load("templates", name, ".html", ErrTemplateNotFound)
}

func (f *FilesystemLoader) load(kind, name, ext string, notFound error) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	root, err := os.OpenRoot(f.dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	defer func() { _ = root.Close() }()

	data, err := fs.ReadFile(root.FS(), path.Join(kind, name+ext))
	switch {
	case err == nil:
		return string(data), nil
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %q", notFound, name)
	default:
		// includes symlinks pointing outside the directory
		return "", fmt.Errorf("%w: %s/%s%s: %v", ErrAssetRead, kind, name, ext, err)
	}
}

var _ AssetLoader = (*FilesystemLoader)(nil)
