package pipeline

import "testing"

func TestResolveLegacy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no placeholders",
			input:    "<p>plain</p>",
			expected: "<p>plain</p>",
		},
		{
			name:     "image with textwidth",
			input:    `__IMG__img%2Fplot.png__OPT__width=0.8\textwidth__END__`,
			expected: `<img src="img/plot.png" alt="" style="max-width:80%">`,
		},
		{
			name:     "image without options",
			input:    `__IMG__a.png__OPT____END__`,
			expected: `<img src="a.png" alt="">`,
		},
		{
			name:     "undecodable image path dropped",
			input:    `x__IMG__bad%zz__OPT____END__y`,
			expected: `xy`,
		},
		{
			name:     "figure with caption",
			input:    `__FIG__<img src="a.png">__CAP__A%20%3Cb%3E__END__`,
			expected: `<div class="latex-figure" style="text-align:center; margin:1rem 0;"><img src="a.png">` +
				`<div class="latex-caption" style="font-weight:600; margin-top:0.5rem;">A &lt;b&gt;</div></div>`,
		},
		{
			name:     "figure without caption",
			input:    "__FIG__\n<p>x</p>\n__CAP____END__",
			expected: "<div class=\"latex-figure\" style=\"text-align:center; margin:1rem 0;\">\n<p>x</p>\n</div>",
		},
		{
			name:  "image inside figure",
			input: `__FIG__ __IMG__a.png__OPT__width=2cm__END__ __CAP__c__END__`,
			expected: `<div class="latex-figure" style="text-align:center; margin:1rem 0;"> <img src="a.png" alt="" style="width:2cm"> ` +
				`<div class="latex-caption" style="font-weight:600; margin-top:0.5rem;">c</div></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ResolveLegacy(tt.input); got != tt.expected {
				t.Errorf("ResolveLegacy() =\n%s\nwant\n%s", got, tt.expected)
			}
		})
	}
}
