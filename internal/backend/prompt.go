package backend

import (
	"fmt"
	"regexp"
	"strings"

	"codemend/internal/issue"
)

// SystemPrompt is sent to chat backends ahead of every request.
const SystemPrompt = "You are an expert software engineer fixing issues reported by static analysis tools. " +
	"Answer with the corrected code only, inside one fenced code block. Do not explain."

// BuildRequest renders the prompt for p. contextLines lines of surrounding
// file content are included for reference when positive.
func BuildRequest(p *issue.Proposal, contextLines int) Request {
	is := p.Issue()
	var sb strings.Builder

	fmt.Fprintf(&sb, "Fix this %s reported by %s in %s:\n", is.Type(), is.Tool(), is.File())
	fmt.Fprintf(&sb, "%s\n\n", is.Description())

	if contextLines > 0 {
		before, after := p.Context(contextLines)
		if len(before)+len(after) > 0 {
			sb.WriteString("Surrounding code, for reference only:\n")
			writeBlock(&sb, is.Language(), before)
			sb.WriteString("...\n")
			writeBlock(&sb, is.Language(), after)
			sb.WriteString("\n")
		}
	}

	if m := is.AnchorMarker(); m != "" {
		fmt.Fprintf(&sb, "The reported line ends with the comment %q. Keep that comment on the corrected line.\n", strings.TrimSpace(m))
	}
	sb.WriteString("Rewrite this snippet so the issue is gone and return the whole snippet:\n")
	writeBlock(&sb, is.Language(), p.IssueLines())

	return Request{
		Text:  sb.String(),
		Issue: is,
		Lines: p.IssueLines(),
	}
}

func writeBlock(sb *strings.Builder, lang string, lines []string) {
	if lang == "unknown" {
		lang = ""
	}
	sb.WriteString("```" + lang + "\n")
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteString("```\n")
}

var codeBlockRegex = regexp.MustCompile("(?s)```[\\w+-]*[ \\t]*\\r?\\n(.*?)```")

// ExtractCode returns the body of the first fenced code block in text, or
// text itself when there is none. Chat models tend to wrap the code in prose.
func ExtractCode(text string) string {
	if m := codeBlockRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}
