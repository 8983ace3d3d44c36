package types

import "strings"

// FileCategory classifies a file by extension for extraction and scoring.
type FileCategory string

const (
	CategoryCode        FileCategory = "code"
	CategoryDocument    FileCategory = "document"
	CategorySpreadsheet FileCategory = "spreadsheet"
	CategoryDatabase    FileCategory = "database"
	CategoryMedia       FileCategory = "media"
	CategoryConfig      FileCategory = "config"
	CategoryArchive     FileCategory = "archive"
	CategoryBinary      FileCategory = "binary"
	CategoryUnknown     FileCategory = "unknown"
)

var extensionCategories = map[string]FileCategory{}

func init() {
	register := func(cat FileCategory, exts ...string) {
		for _, ext := range exts {
			extensionCategories[ext] = cat
		}
	}
	register(CategoryCode,
		"rs", "js", "ts", "jsx", "tsx", "py", "java", "c", "cpp", "h", "hpp",
		"cs", "php", "rb", "go", "swift", "kt", "scala", "clj", "hs", "ml",
		"fs", "elm", "dart", "r", "m", "mm", "pl", "sh", "bash", "zsh", "fish")
	register(CategoryDocument,
		"md", "txt", "pdf", "doc", "docx", "rtf", "odt", "tex", "rst", "adoc")
	register(CategorySpreadsheet, "csv", "tsv", "xls", "xlsx", "ods")
	register(CategoryDatabase, "db", "sqlite", "sqlite3", "sql", "mdb", "accdb")
	register(CategoryMedia,
		"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "ico", "tiff", "tif",
		"mp3", "wav", "flac", "aac", "ogg", "wma", "m4a", "mp4", "avi", "mkv",
		"mov", "wmv", "flv", "webm", "m4v")
	register(CategoryConfig,
		"json", "yaml", "yml", "toml", "ini", "cfg", "conf", "config", "xml",
		"plist", "properties", "env")
	register(CategoryArchive, "zip", "rar", "7z", "tar", "gz", "bz2", "xz", "dmg", "iso")
	register(CategoryBinary, "exe", "dll", "so", "dylib", "bin", "app", "deb", "rpm", "msi")
}

// CategoryForExtension maps a file extension (without leading dot) to its
// category. Unrecognized extensions map to CategoryUnknown.
func CategoryForExtension(ext string) FileCategory {
	if cat, ok := extensionCategories[strings.ToLower(ext)]; ok {
		return cat
	}
	return CategoryUnknown
}

var extensionLanguages = map[string]string{
	"rs": "rust", "js": "javascript", "ts": "typescript",
	"jsx": "react_javascript", "tsx": "react_typescript",
	"py": "python", "java": "java", "c": "c",
	"cpp": "cpp", "cc": "cpp", "cxx": "cpp",
	"h": "c_header", "hpp": "c_header",
	"cs": "csharp", "php": "php", "rb": "ruby", "go": "go",
	"swift": "swift", "kt": "kotlin", "scala": "scala", "clj": "clojure",
	"hs": "haskell", "ml": "ocaml", "fs": "fsharp", "elm": "elm",
	"dart": "dart", "r": "r", "m": "objective_c", "mm": "objective_c",
	"pl": "perl", "sh": "shell", "bash": "shell", "zsh": "shell", "fish": "shell",
}

// LanguageForExtension returns the programming language name for a code file
// extension, or "unknown".
func LanguageForExtension(ext string) string {
	if lang, ok := extensionLanguages[strings.ToLower(ext)]; ok {
		return lang
	}
	return "unknown"
}
