// Package lang normalizes arbitrary language labels to the closed set
// the backend understands and wraps chroma's content analysis so the
// rest of the client never sees raw heuristic output.
package lang

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// Language is the wire value stored on a paste. AutoDetect is the empty
// string: the backend treats it as "no language recorded".
type Language string

const (
	AutoDetect Language = ""
	Plaintext  Language = "plaintext"
	JavaScript Language = "javascript"
	CSS        Language = "css"
	Python     Language = "python"
	TypeScript Language = "typescript"
	Java       Language = "java"
	C          Language = "c"
	Cpp        Language = "cpp"
	Go         Language = "go"
	Rust       Language = "rs"
	PHP        Language = "php"
	Ruby       Language = "ruby"
	Bash       Language = "bash"
	JSON       Language = "json"
	YAML       Language = "yaml"
	Markdown   Language = "markdown"
)

// Option pairs a display label with its wire value, in menu order.
type Option struct {
	Label string
	Value Language
}

func Options() []Option {
	return []Option{
		{"Auto Detect", AutoDetect},
		{"Plaintext", Plaintext},
		{"JavaScript", JavaScript},
		{"CSS", CSS},
		{"Python", Python},
		{"TypeScript", TypeScript},
		{"Java", Java},
		{"C", C},
		{"C++", Cpp},
		{"Go", Go},
		{"Rust", Rust},
		{"PHP", PHP},
		{"Ruby", Ruby},
		{"Bash", Bash},
		{"JSON", JSON},
		{"YAML", YAML},
		{"Markdown", Markdown},
	}
}

func (l Language) Label() string {
	for _, o := range Options() {
		if o.Value == l {
			return o.Label
		}
	}
	return "Auto Detect"
}

// aliases maps spellings seen from users, the backend, and chroma's
// analyser onto the closed set. Keys are lowercase.
var aliases = map[string]Language{
	"auto":        AutoDetect,
	"auto detect": AutoDetect,
	"autodetect":  AutoDetect,
	"plaintext":   Plaintext,
	"plain":       Plaintext,
	"text":        Plaintext,
	"txt":         Plaintext,
	"javascript":  JavaScript,
	"js":          JavaScript,
	"node":        JavaScript,
	"css":         CSS,
	"python":      Python,
	"python 3":    Python,
	"py":          Python,
	"typescript":  TypeScript,
	"ts":          TypeScript,
	"java":        Java,
	"c":           C,
	"cpp":         Cpp,
	"c++":         Cpp,
	"go":          Go,
	"golang":      Go,
	"rs":          Rust,
	"rust":        Rust,
	"php":         PHP,
	"ruby":        Ruby,
	"rb":          Ruby,
	"bash":        Bash,
	"sh":          Bash,
	"shell":       Bash,
	"zsh":         Bash,
	"json":        JSON,
	"yaml":        YAML,
	"yml":         YAML,
	"markdown":    Markdown,
	"md":          Markdown,
}

// Normalize maps any string to a member of the closed set. Unknown
// input maps to AutoDetect; it never fails.
func Normalize(raw string) Language {
	key := strings.ToLower(strings.TrimSpace(raw))
	if l, ok := aliases[key]; ok {
		return l
	}
	return AutoDetect
}

// Detect guesses the language of content using chroma's lexer analysis.
// Blank content yields AutoDetect rather than a spurious guess, and any
// analyser result outside the closed set collapses to AutoDetect.
func Detect(content string) Language {
	if strings.TrimSpace(content) == "" {
		return AutoDetect
	}
	lexer := lexers.Analyse(content)
	if lexer == nil {
		return AutoDetect
	}
	return Normalize(lexer.Config().Name)
}

// ChromaName returns the lexer name to highlight with. AutoDetect has
// no stored language, so the caller should fall back to Detect first.
func (l Language) ChromaName() string {
	switch l {
	case Cpp:
		return "c++"
	case Rust:
		return "rust"
	case AutoDetect, Plaintext:
		return "plaintext"
	default:
		return string(l)
	}
}
