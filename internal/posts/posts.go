// Package posts reads LaTeX posts from a directory of .tex files.
//
// A post is addressed by its slug, the filename without ".tex". Listing
// extracts title, date and a plain-text excerpt without rendering.
package posts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alnah/go-tex2html/internal/pipeline"
)

// Extension of post source files.
const Extension = ".tex"

// Sentinel errors for post lookup.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrInvalidSlug  = errors.New("invalid post identifier")
)

// Post is the listing metadata of one source file.
type Post struct {
	File    string `json:"filename"`
	Slug    string `json:"name"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Excerpt string `json:"excerpt"`
}

// Source is a post with its raw LaTeX.
type Source struct {
	Post
	Path string `json:"-"`
	Text string `json:"-"`
}

// Store reads posts from Dir.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// List returns every post, newest first. Posts whose date cannot be parsed
// come after dated ones; ties are ordered by filename. A missing directory
// is an empty listing.
func (s *Store) List(ctx context.Context) ([]Post, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	list := make([]Post, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := s.read(file)
		if err != nil {
			return nil, err
		}
		list = append(list, src.Post)
	}

	sortNewestFirst(list)
	return list, nil
}

// Slugs returns the slug of every post, sorted.
func (s *Store) Slugs() ([]string, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(files))
	for i, f := range files {
		slugs[i] = strings.TrimSuffix(f, Extension)
	}
	return slugs, nil
}

// Read loads one post by slug or filename ("notes" or "notes.tex").
// Identifiers that could leave the directory fail with ErrInvalidSlug.
func (s *Store) Read(slug string) (*Source, error) {
	file, err := Filename(slug)
	if err != nil {
		return nil, err
	}
	return s.read(file)
}

// Filename validates an identifier and returns the source filename.
func Filename(slug string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, "/\\\x00") || strings.HasPrefix(slug, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	if strings.HasSuffix(slug, Extension) {
		if slug == Extension {
			return "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
		}
		return slug, nil
	}
	return slug + Extension, nil
}

func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading posts directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) read(file string) (*Source, error) {
	path := filepath.Join(s.Dir, file)
	data, err := os.ReadFile(path) // #nosec G304 -- file validated by Filename or listed from Dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, file)
		}
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	text := string(data)
	return &Source{Post: Describe(file, text), Path: path, Text: text}, nil
}

// Describe extracts listing metadata from a source. The title falls back
// to the slug; the date is the raw \date argument.
func Describe(file, text string) Post {
	slug := strings.TrimSuffix(file, Extension)
	title, ok := pipeline.CommandArgument(text, "title")
	if title = StripTeX(title); !ok || title == "" {
		title = slug
	}
	date, _ := pipeline.CommandArgument(text, "date")
	return Post{
		File:    file,
		Slug:    slug,
		Title:   title,
		Date:    StripTeX(date),
		Excerpt: Excerpt(text),
	}
}

// dateLayouts are tried in order when sorting by \date.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2006",
	"02/01/2006",
	"2006",
}

// ParseDate parses a \date argument, reporting false for free text
// such as "Spring term" or \today.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sortNewestFirst(list []Post) {
	sort.SliceStable(list, func(i, j int) bool {
		ti, iok := ParseDate(list[i].Date)
		tj, jok := ParseDate(list[j].Date)
		switch {
		case iok && jok && !ti.Equal(tj):
			return ti.After(tj)
		case iok != jok:
			return iok
		}
		return list[i].File < list[j].File
	})
}
