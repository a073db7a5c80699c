// Package pipeline implements the LaTeX-to-HTML rendering pipeline.
//
// A render pass runs four stages:
//   - Normalization: rewrites the supported LaTeX subset and lifts title
//     blocks, images, captions and tables out of the text as tokens
//   - External rendering: wraps the text in an article document and pipes
//     it through pandoc
//   - Token resolution: substitutes token ids in the returned fragment with
//     hand-built markup and tidies the tree (golang.org/x/net/html)
//   - Fallback tables: renders tabular rows directly when pandoc cannot
//
// Token ids are delimited by Private Use Area characters, which TeX reads as
// plain text and pandoc copies through unchanged. A TokenTable belongs to a
// single pass and is never shared.
//
// Page assembly (template, inline CSS, asset URLs) lives here as well so the
// server and the static build wrap fragments the same way.
package pipeline
