package issue

import (
	"path/filepath"
	"strings"
)

// Language describes how codemend treats source files of one language.
type Language struct {
	Name            string
	CommentToken    string // single-line comment prefix; empty when the language has none
	IndentSensitive bool   // block structure is carried by indentation
}

var languages = map[string]Language{
	"go":         {Name: "go", CommentToken: "//"},
	"python":     {Name: "python", CommentToken: "#", IndentSensitive: true},
	"typescript": {Name: "typescript", CommentToken: "//"},
	"javascript": {Name: "javascript", CommentToken: "//"},
	"rust":       {Name: "rust", CommentToken: "//"},
	"java":       {Name: "java", CommentToken: "//"},
	"kotlin":     {Name: "kotlin", CommentToken: "//"},
	"swift":      {Name: "swift", CommentToken: "//"},
	"ruby":       {Name: "ruby", CommentToken: "#"},
	"php":        {Name: "php", CommentToken: "//"},
	"csharp":     {Name: "csharp", CommentToken: "//"},
	"cpp":        {Name: "cpp", CommentToken: "//"},
	"c":          {Name: "c", CommentToken: "//"},
	"sql":        {Name: "sql", CommentToken: "--"},
	"lua":        {Name: "lua", CommentToken: "--"},
	"bash":       {Name: "bash", CommentToken: "#"},
	"yaml":       {Name: "yaml", CommentToken: "#", IndentSensitive: true},
	"toml":       {Name: "toml", CommentToken: "#"},
	"makefile":   {Name: "makefile", CommentToken: "#"},
	"json":       {Name: "json"},
	"markdown":   {Name: "markdown"},
	"html":       {Name: "html"},
	"css":        {Name: "css"},
}

// DetectLanguage infers a language name from a file path. Unknown extensions
// yield "unknown".
func DetectLanguage(path string) string {
	if strings.EqualFold(filepath.Base(path), "makefile") {
		return "makefile"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py", ".pyi":
		return "python"
	case ".ts", ".tsx", ".mts":
		return "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".kt", ".kts":
		return "kotlin"
	case ".swift":
		return "swift"
	case ".rb":
		return "ruby"
	case ".php":
		return "php"
	case ".cs":
		return "csharp"
	case ".cpp", ".cc", ".cxx", ".hpp", ".hh":
		return "cpp"
	case ".c", ".h":
		return "c"
	case ".sql":
		return "sql"
	case ".lua":
		return "lua"
	case ".sh", ".bash":
		return "bash"
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".html", ".htm":
		return "html"
	case ".css", ".scss":
		return "css"
	default:
		return "unknown"
	}
}

// LookupLanguage returns the table entry for name. Unknown languages get an
// entry without a comment token, which disables anchor markers.
func LookupLanguage(name string) Language {
	if l, ok := languages[strings.ToLower(name)]; ok {
		return l
	}
	return Language{Name: name}
}
