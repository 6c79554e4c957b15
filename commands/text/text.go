// Package text formats the help text of the timelock-viewer commands.
package text

import (
	"strings"
)

// Indentation is the indentation of example lines.
const Indentation = `  `

// LongDesc trims a long description and removes the indentation common to its lines, so
// descriptions can be written as indented raw strings.
func LongDesc(s string) string {
	if len(s) == 0 {
		return s
	}

	return normalizer{s}.trim().dedent().string
}

// Examples trims examples and indents every line by Indentation.
func Examples(s string) string {
	if len(s) == 0 {
		return s
	}

	return normalizer{s}.trim().indent().string
}

type normalizer struct {
	string
}

func (s normalizer) trim() normalizer {
	s.string = strings.Trim(s.string, "\n\r")
	s.string = strings.TrimRight(s.string, " \t\n")

	return s
}

// dedent strips the shortest leading whitespace of the non-blank lines from every line.
func (s normalizer) dedent() normalizer {
	lines := strings.Split(s.string, "\n")

	prefix := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}

	for i, line := range lines {
		if len(line) >= prefix && prefix > 0 {
			lines[i] = line[prefix:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	s.string = strings.Join(lines, "\n")

	return s
}

func (s normalizer) indent() normalizer {
	indented := make([]string, 0, strings.Count(s.string, "\n")+1)
	for line := range strings.SplitSeq(s.string, "\n") {
		indented = append(indented, Indentation+strings.TrimSpace(line))
	}
	s.string = strings.Join(indented, "\n")

	return s
}
