package ignore

// DefaultSkipPatterns are always skipped unless MatcherOptions.NoDefaults is set.
// Plain names match any path component; globs match the base name.
var DefaultSkipPatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Dependencies
	"node_modules",
	"bower_components",
	".npm",
	".yarn",

	// Editor state
	".idea",
	".vscode",
	".vs",
	"*.swp",
	"*.swo",
	"*~",

	// OS litter
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",

	// Python
	"__pycache__",
	"*.pyc",
	".venv",
	"venv",

	// Caches
	".cache",
	".parcel-cache",
	".next",
	".nuxt",
}
