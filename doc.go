// Package tex2html renders LaTeX articles to HTML through pandoc.
//
// # Quick Start
//
// Create a converter, convert a source, and close when done:
//
//	conv, err := tex2html.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, tex2html.Input{
//	    Source: `\title{Notes}\maketitle Hello $x^2$.`,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.HTML)
//
// The result is an HTML fragment. It is trusted markup and is not sanitized.
//
// # Render Pass
//
// Each call to Convert is one pass:
//
//  1. Normalization rewrites the supported LaTeX subset and lifts title
//     blocks, images, captions and tables out as tokens
//  2. pandoc renders the normalized document (-f latex -t html5)
//  3. Tokens found in the fragment are replaced by their markup; tables are
//     rendered by pandoc again, or by a fallback renderer when that fails
//
// A document pandoc cannot parse fails the whole pass with ErrParseFailure.
// A missing pandoc fails with ErrRenderUnavailable; the next pass looks for
// it again.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := tex2html.NewConverter(
//	    tex2html.WithPandocPath("/opt/pandoc/bin/pandoc"),
//	    tex2html.WithMathMethod(tex2html.MathKaTeX),
//	    tex2html.WithTimeout(time.Minute),
//	    tex2html.WithDateFormat("iso"),
//	)
//
// # Pages and PDF
//
// RenderPage mounts a fragment in the theme page template, RenderIndex
// renders a post listing, and ExportPDF prints a page with headless Chrome.
//
// # Parallel Processing
//
// For batch builds, use ConverterPool to bound concurrent conversions:
//
//	pool := tex2html.NewConverterPool(tex2html.ResolvePoolSize(0))
//	defer pool.Close()
//
//	conv, err := pool.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(conv)
//
// Use Session when the same view is re-rendered repeatedly and only the
// latest pass may be shown.
package tex2html
