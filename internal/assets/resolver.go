package assets

import "errors"

// AssetResolver layers a site's theme directory over the embedded theme:
// a file present in the directory wins, anything missing falls through.
type AssetResolver struct {
	layers []AssetLoader // searched in order
}

// NewAssetResolver creates an AssetResolver. An empty dir uses the
// embedded theme only; a dir that cannot be opened is an error.
func NewAssetResolver(dir string) (*AssetResolver, error) {
	r := &AssetResolver{}
	if dir != "" {
		custom, err := NewFilesystemLoader(dir)
		if err != nil {
			return nil, err
		}
		r.layers = append(r.layers, custom)
	}
	r.layers = append(r.layers, NewEmbeddedLoader())
	return r, nil
}

func (r *AssetResolver) LoadStyle(name string) (string, error) {
	return r.first(func(l AssetLoader) (string, error) { return l.LoadStyle(name) })
}

func (r *AssetResolver) LoadTemplate(name string) (string, error) {
	return r.first(func(l AssetLoader) (string, error) { return l.LoadTemplate(name) })
}

// first returns the first layer's content. Only "not found" moves on to the
// next layer; a read or validation error stops the search.
func (r *AssetResolver) first(load func(AssetLoader) (string, error)) (string, error) {
	var err error
	for _, layer := range r.layers {
		var content string
		if content, err = load(layer); err == nil {
			return content, nil
		}
		if !isNotFoundError(err) {
			return "", err
		}
	}
	return "", err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrStyleNotFound) || errors.Is(err, ErrTemplateNotFound)
}

// HasCustomLoader reports whether a theme directory is layered over the
// embedded theme.
func (r *AssetResolver) HasCustomLoader() bool {
	return len(r.layers) > 1
}

var _ AssetLoader = (*AssetResolver)(nil)
