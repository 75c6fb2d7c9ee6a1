package category

// DefaultTable is the built-in category table, in priority order.
var DefaultTable = Table{
	{Name: "code", Extensions: []string{
		"go", "js", "jsx", "mjs", "cjs", "ts", "tsx", "py", "pyi", "rs", "java", "kt", "kts",
		"c", "h", "cpp", "cc", "cxx", "hpp", "cs", "swift", "dart", "rb", "php",
		"sh", "bash", "zsh", "ps1", "lua", "scala", "ex", "exs", "erl", "hs", "zig",
		"vue", "svelte", "sql", "proto", "graphql", "mk", "dockerfile",
	}},
	{Name: "docs", Extensions: []string{
		"md", "mdx", "rst", "txt", "tex", "pdf", "doc", "docx", "odt", "rtf", "html", "htm",
	}},
	{Name: "data", Extensions: []string{
		"csv", "tsv", "json", "jsonl", "ndjson", "parquet", "xml", "xls", "xlsx", "sqlite", "db",
	}},
	{Name: "media", Extensions: []string{
		"png", "jpg", "jpeg", "gif", "bmp", "webp", "svg", "ico", "tiff",
		"mp3", "wav", "flac", "ogg", "mp4", "mov", "avi", "mkv", "webm",
	}},
	{Name: "config", Extensions: []string{
		"yaml", "yml", "toml", "ini", "env", "properties", "conf", "cfg", "tf", "tfvars",
	}},
}

// FilenameAliases maps extensionless file names to the extension they behave like.
var FilenameAliases = map[string]string{
	"makefile":    "mk",
	"gnumakefile": "mk",
	"dockerfile":  "dockerfile",
	"gemfile":     "rb",
	"rakefile":    "rb",
	".env":        "env",
}
