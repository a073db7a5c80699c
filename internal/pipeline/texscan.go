package pipeline

import (
	"regexp"
	"strings"
)

// beginPattern matches an environment opening such as \begin{figure*}.
var beginPattern = regexp.MustCompile(`\\begin\s*\{([a-zA-Z*]+)\}`)

// command is one parsed macro occurrence in a source string.
type command struct {
	start, end int // s[start:end] is the whole macro with its arguments
	opt        string
	hasOpt     bool
	args       []string
}

// environment is one matched \begin{name}...\end{name} span.
type environment struct {
	name      string
	start     int // index of \begin
	bodyStart int // index just past \begin{name}
	bodyEnd   int // index of the matching \end{name}
	end       int // index just past \end{name}
}

func (e environment) body(s string) string {
	return s[e.bodyStart:e.bodyEnd]
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// readGroup reads a brace-delimited argument starting at s[i].
// Returns the content without the outer braces and the index past the
// closing brace. Escaped braces do not count towards nesting.
func readGroup(s string, i int) (string, int, bool) {
	if i >= len(s) || s[i] != '{' {
		return "", i, false
	}
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[i+1 : j], j + 1, true
			}
		}
	}
	return "", i, false
}

// readOptional reads a bracket-delimited argument starting at s[i].
// Brackets inside braces do not terminate the argument.
func readOptional(s string, i int) (string, int, bool) {
	if i >= len(s) || s[i] != '[' {
		return "", i, false
	}
	depth := 0
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ']':
			if depth == 0 {
				return s[i+1 : j], j + 1, true
			}
		}
	}
	return "", i, false
}

// findCommand returns the index of the next \name at or after from that is
// not the prefix of a longer control word, or -1.
func findCommand(s, name string, from int) int {
	needle := `\` + name
	for from <= len(s) {
		idx := strings.Index(s[from:], needle)
		if idx < 0 {
			return -1
		}
		pos := from + idx
		next := pos + len(needle)
		if next >= len(s) || !isLetter(s[next]) {
			return pos
		}
		from = next
	}
	return -1
}

// parseCommand parses \name at s[i] followed by an optional star, an optional
// bracket argument and n mandatory brace arguments.
func parseCommand(s string, i int, name string, n int) (command, bool) {
	j := i + 1 + len(name)
	if j < len(s) && s[j] == '*' {
		j++
	}
	cmd := command{start: i}
	if opt, end, ok := readOptional(s, skipSpace(s, j)); ok {
		cmd.opt, cmd.hasOpt = opt, true
		j = end
	}
	for a := 0; a < n; a++ {
		arg, end, ok := readGroup(s, skipSpace(s, j))
		if !ok {
			return command{}, false
		}
		cmd.args = append(cmd.args, arg)
		j = end
	}
	cmd.end = j
	return cmd, true
}

// firstCommand returns the first well-formed occurrence of \name with n
// mandatory arguments.
func firstCommand(s, name string, n int) (command, bool) {
	for i := findCommand(s, name, 0); i >= 0; i = findCommand(s, name, i+1) {
		if cmd, ok := parseCommand(s, i, name, n); ok {
			return cmd, true
		}
	}
	return command{}, false
}

// rewriteCommand replaces every well-formed \name occurrence with the result
// of fn. Malformed occurrences are left in place.
func rewriteCommand(s, name string, n int, fn func(cmd command) string) string {
	var b strings.Builder
	last := 0
	for i := findCommand(s, name, 0); i >= 0; {
		cmd, ok := parseCommand(s, i, name, n)
		if !ok {
			i = findCommand(s, name, i+1)
			continue
		}
		b.WriteString(s[last:cmd.start])
		b.WriteString(fn(cmd))
		last = cmd.end
		i = findCommand(s, name, cmd.end)
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// removeCommand deletes every \name occurrence together with its arguments.
func removeCommand(s, name string, n int) string {
	return rewriteCommand(s, name, n, func(command) string { return "" })
}

// replaceControlWord replaces every argument-less \name with repl.
func replaceControlWord(s, name string, repl func() string) string {
	var b strings.Builder
	last := 0
	for i := findCommand(s, name, 0); i >= 0; i = findCommand(s, name, last) {
		b.WriteString(s[last:i])
		b.WriteString(repl())
		last = i + 1 + len(name)
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// matchEnd finds the \end{name} closing an environment whose body starts at
// from. Nested environments of the same name are skipped. Like beginPattern,
// whitespace is allowed between \end and the brace.
func matchEnd(s, name string, from int) (bodyEnd, end int, ok bool) {
	delim := regexp.MustCompile(`\\(begin|end)\s*\{` + regexp.QuoteMeta(name) + `\}`)
	depth := 1
	for _, loc := range delim.FindAllStringSubmatchIndex(s[from:], -1) {
		if s[from+loc[2]:from+loc[3]] == "begin" {
			depth++
			continue
		}
		depth--
		if depth == 0 {
			return from + loc[0], from + loc[1], true
		}
	}
	return 0, 0, false
}

// rewriteEnvironments replaces every environment accepted by match with the
// result of fn. Scanning continues after the replaced span; environments that
// are not accepted are scanned into, so nested matches are still found.
// An opening without a matching \end is left untouched.
func rewriteEnvironments(s string, match func(name string) bool, fn func(env environment) string) string {
	var b strings.Builder
	i, last := 0, 0
	for i < len(s) {
		loc := beginPattern.FindStringSubmatchIndex(s[i:])
		if loc == nil {
			break
		}
		name := s[i+loc[2] : i+loc[3]]
		start, after := i+loc[0], i+loc[1]
		if !match(name) {
			i = after
			continue
		}
		bodyEnd, end, ok := matchEnd(s, name, after)
		if !ok {
			i = after
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(fn(environment{name: name, start: start, bodyStart: after, bodyEnd: bodyEnd, end: end}))
		i, last = end, end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// nameIn returns a matcher accepting the given environment names.
func nameIn(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}
