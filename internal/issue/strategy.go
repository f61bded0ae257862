package issue

import "strings"

// Strategy post-processes candidate lines before they are merged into a
// window. One strategy is selected per language.
type Strategy interface {
	Adjust(window, candidate []string) []string
}

// StrategyFor returns the strategy for a language name.
func StrategyFor(language string) Strategy {
	if LookupLanguage(language).IndentSensitive {
		return indentStrategy{}
	}
	return plainStrategy{}
}

type plainStrategy struct{}

func (plainStrategy) Adjust(_, candidate []string) []string { return candidate }

// indentStrategy restores the window's common indentation when a backend
// answers with a dedented snippet. In indentation-sensitive languages the
// merge would otherwise see every line as changed.
type indentStrategy struct{}

func (indentStrategy) Adjust(window, candidate []string) []string {
	want := commonIndent(window)
	have := commonIndent(candidate)
	if len(have) >= len(want) || !strings.HasPrefix(want, have) {
		return candidate
	}
	extra := want[len(have):]
	out := make([]string, len(candidate))
	for i, l := range candidate {
		if strings.TrimSpace(l) == "" {
			out[i] = l
			continue
		}
		out[i] = extra + l
	}
	return out
}

// commonIndent is the longest whitespace prefix shared by all non-blank lines.
func commonIndent(lines []string) string {
	prefix, found := "", false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if !found {
			prefix, found = indent, true
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}
