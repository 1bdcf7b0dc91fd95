package prompt

import (
	"path/filepath"
	"strings"
)

var extensionLabels = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript (JSX)",
	".ts":    "TypeScript",
	".tsx":   "TypeScript (TSX)",
	".java":  "Java",
	".kt":    "Kotlin",
	".rb":    "Ruby",
	".rs":    "Rust",
	".c":     "C",
	".h":     "C header",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++ header",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".scala": "Scala",
	".sql":   "SQL",
	".sh":    "Shell",
	".html":  "HTML",
	".css":   "CSS",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".toml":  "TOML",
	".md":    "Markdown",
}

var nameLabels = map[string]string{
	"dockerfile": "Dockerfile",
	"makefile":   "Makefile",
	"go.mod":     "Go module",
}

// TypeLabel infers a human-readable file type from the path
func TypeLabel(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if label, ok := nameLabels[base]; ok {
		return label
	}
	if label, ok := extensionLabels[strings.ToLower(filepath.Ext(base))]; ok {
		return label
	}
	return "text"
}
