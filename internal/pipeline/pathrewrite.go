package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RewriteAssetURLs points image sources at files under siteDir so a page
// can be loaded from disk (PDF export). Both "images/a.png" and the site
// root form "/images/a.png" resolve against siteDir. URLs, data URIs and
// paths escaping siteDir are left as they are.
// If siteDir is empty, returns the HTML unchanged.
func RewriteAssetURLs(markup, siteDir string) (string, error) {
	if siteDir == "" {
		return markup, nil
	}

	absDir, err := filepath.Abs(siteDir)
	if err != nil {
		return "", err
	}

	doc, isFragment, err := parseHTML(markup)
	if err != nil {
		return "", err
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			for i, a := range n.Attr {
				if a.Key != "src" {
					continue
				}
				if u, ok := siteFileURL(a.Val, absDir); ok {
					n.Attr[i].Val = u
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return renderHTML(doc, isFragment)
}

// siteFileURL maps a site path to a file:// URL under dir.
func siteFileURL(src, dir string) (string, bool) {
	if !isSitePath(src) {
		return "", false
	}
	decoded, err := url.PathUnescape(src)
	if err != nil {
		decoded = src
	}

	abs := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(decoded, "/")))
	if !isPathUnderDir(abs, dir) {
		return "", false
	}
	return pathToFileURL(abs), true
}

// isSitePath reports whether src names a file served by the site itself.
func isSitePath(src string) bool {
	if src == "" || strings.HasPrefix(src, "#") || strings.HasPrefix(src, "//") {
		return false
	}
	if u, err := url.Parse(src); err == nil && u.Scheme != "" {
		return false
	}
	return true
}

// isPathUnderDir reports whether absPath is dir or lies inside it.
func isPathUnderDir(absPath, dir string) bool {
	rel, err := filepath.Rel(dir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func pathToFileURL(absPath string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}).String()
}
