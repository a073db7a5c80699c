package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/assets"
	"github.com/alnah/go-tex2html/internal/posts"
)

// postJSON is a post as returned by the API.
type postJSON struct {
	posts.Post
	HTMLPath string `json:"htmlPath"`
	HTML     string `json:"html,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"engine": s.conv.EngineReady(),
	})
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = io.WriteString(w, s.conv.Stylesheet())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("listing posts", "error", err)
		http.Error(w, "failed to list posts", http.StatusInternalServerError)
		return
	}

	entries := make([]tex2html.IndexEntry, len(list))
	for i, p := range list {
		entries[i] = tex2html.IndexEntry{Href: postHref(p.Slug), Title: p.Title, Date: p.Date, Excerpt: p.Excerpt}
	}

	page, err := s.conv.RenderIndex(r.Context(), entries, s.meta(s.opts.Title))
	if err != nil {
		s.log.Error("rendering index", "error", err)
		http.Error(w, "failed to render index", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, page)
}

// handlePost renders one post. A failed render shows the error state page,
// never a partial document.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	debug := r.URL.Query().Get("debug") == "latex"

	src, err := s.store.Read(slug)
	if err != nil {
		s.errorPage(w, r, err, slug)
		return
	}

	meta := s.meta(src.Title)
	res, err := s.render(r, src, debug)
	if err != nil {
		s.errorPage(w, r, err, src.Title)
		return
	}

	page, err := s.conv.RenderPage(r.Context(), res, meta)
	if err != nil {
		s.errorPage(w, r, err, src.Title)
		return
	}
	writeHTML(w, http.StatusOK, page)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		jsonError(w, "failed to list posts", http.StatusInternalServerError)
		return
	}
	out := make([]postJSON, len(list))
	for i, p := range list {
		out[i] = postJSON{Post: p, HTMLPath: postHref(p.Slug)}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetPost returns a post with its rendered fragment, for clients
// mounting the HTML themselves.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	src, err := s.store.Read(chi.URLParam(r, "slug"))
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	res, err := s.render(r, src, false)
	if err != nil {
		s.log.Warn("render failed", "file", src.File, "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, postJSON{Post: src.Post, HTMLPath: postHref(src.Slug), HTML: res.HTML})
}

// handlePreview renders a posted source for a live editor. Requests carry
// a view id; a render overtaken by a newer one for the same view answers
// 409 so the client keeps the newer result.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPreviewBytes))
	if err != nil {
		jsonError(w, "source too large", http.StatusRequestEntityTooLarge)
		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = "default"
	}
	sess := s.session(view)

	res, err := sess.Render(r.Context(), tex2html.Input{Source: string(body)})
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": res.HTML})
}

// render converts a post, serving repeated sources from the cache.
func (s *Server) render(r *http.Request, src *posts.Source, debug bool) (*tex2html.Result, error) {
	key := sourceKey(src.Text, debug)
	if res, ok := s.cached(key); ok {
		return res, nil
	}

	res, err := s.conv.Convert(r.Context(), tex2html.Input{Source: src.Text, Debug: debug})
	if err != nil {
		return nil, err
	}
	s.remember(key, res)
	return res, nil
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, cause error, title string) {
	status := statusFor(cause)
	if status >= http.StatusInternalServerError {
		s.log.Error("render failed", "path", r.URL.Path, "error", cause)
	} else {
		s.log.Warn("render failed", "path", r.URL.Path, "error", cause)
	}

	page, err := s.conv.RenderErrorPage(r.Context(), cause, s.meta(title))
	if err != nil {
		http.Error(w, cause.Error(), status)
		return
	}
	writeHTML(w, status, page)
}

func (s *Server) meta(title string) tex2html.PageMeta {
	return tex2html.PageMeta{Title: title, Lang: s.opts.Lang, Stylesheet: assets.StylesheetPath}
}

// statusFor maps pipeline and lookup errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, posts.ErrInvalidSlug), errors.Is(err, tex2html.ErrEmptySource):
		return http.StatusBadRequest
	case errors.Is(err, posts.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, tex2html.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, tex2html.ErrParseFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tex2html.ErrRenderUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func postHref(slug string) string {
	return path.Join("/posts", slug)
}

func writeHTML(w http.ResponseWriter, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, page)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
