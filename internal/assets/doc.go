// Package assets provides the stylesheet and HTML templates used to wrap
// rendered posts in pages.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from the go:embed filesystem
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── AssetResolver     - custom first, embedded as fallback
//
// AssetResolver is what the converter and the server use: a site can
// override latex.css alone and keep the embedded page templates.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── latex.css
//	└── templates/
//	    ├── page.html    # one rendered post
//	    └── index.html   # post listing
//
// # Security
//
// Asset names are validated to prevent path traversal, and FilesystemLoader
// reads through an os.Root confined to the configured directory.
package assets
