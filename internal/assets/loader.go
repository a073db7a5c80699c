package assets

// AssetLoader loads the stylesheet and templates by name, without extension.
type AssetLoader interface {
	// LoadStyle returns ErrStyleNotFound if the style doesn't exist and
	// ErrInvalidAssetName if the name contains invalid characters.
	LoadStyle(name string) (string, error)

	// LoadTemplate returns ErrTemplateNotFound if the template doesn't exist and
	// ErrInvalidAssetName if the name contains invalid characters.
	LoadTemplate(name string) (string, error)
}
