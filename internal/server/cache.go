package server

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	tex2html "github.com/alnah/go-tex2html"
)

// newCache returns an LRU holding size entries, or nil when size is not
// positive. A nil cache disables storage.
func newCache[V any](size int) *lru.Cache[string, V] {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		return nil
	}
	return c
}

// cached returns the result stored under key.
func (s *Server) cached(key string) (*tex2html.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

// remember stores res under key.
func (s *Server) remember(key string, res *tex2html.Result) {
	if s.cache != nil {
		s.cache.Add(key, res)
	}
}

// session returns the preview session of view, creating it on first use.
// Concurrent first requests for a view end up sharing one session.
func (s *Server) session(view string) *tex2html.Session {
	if sess, ok := s.sessions.Get(view); ok {
		return sess
	}
	sess := tex2html.NewSession(s.conv)
	if prev, ok, _ := s.sessions.PeekOrAdd(view, sess); ok {
		return prev
	}
	return sess
}

// sourceKey identifies a render by source content and debug mode, so an
// edited post is never served from a stale entry.
func sourceKey(source string, debug bool) string {
	sum := sha256.Sum256([]byte(source))
	key := hex.EncodeToString(sum[:])
	if debug {
		key += ":debug"
	}
	return key
}
