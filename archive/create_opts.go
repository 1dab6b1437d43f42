package archive

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// SkipCompressionFunc returns true when a file should be stored uncompressed.
// It is called once per file and should be inexpensive.
type SkipCompressionFunc func(path string, info fs.FileInfo) bool

// DefaultSkipCompression returns a SkipCompressionFunc that skips small files
// and formats that are already compressed.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(path string, info fs.FileInfo) bool {
		if info != nil && minSize > 0 && info.Size() < minSize {
			return true
		}
		_, ok := defaultSkipCompressionExts[strings.ToLower(filepath.Ext(path))]
		return ok
	}
}

var defaultSkipCompressionExts = map[string]struct{}{
	".7z":   {},
	".ba2":  {},
	".bsa":  {},
	".fuz":  {},
	".gz":   {},
	".jpg":  {},
	".jpeg": {},
	".mp3":  {},
	".ogg":  {},
	".png":  {},
	".xwm":  {},
	".zip":  {},
	".zst":  {},
}

// DefaultMaxFiles is the default limit used when no MaxFiles option is set.
const DefaultMaxFiles = 200_000

// createConfig holds configuration for archive creation.
type createConfig struct {
	compression     Compression
	skipCompression []SkipCompressionFunc
	maxFiles        int
	workers         int
	logger          *slog.Logger
}

// CreateOption configures Create.
type CreateOption func(*createConfig)

// CreateWithCompression sets the compression algorithm for entries.
func CreateWithCompression(c Compression) CreateOption {
	return func(cfg *createConfig) {
		cfg.compression = c
	}
}

// CreateWithSkipCompression adds predicates that store matching files raw.
func CreateWithSkipCompression(fns ...SkipCompressionFunc) CreateOption {
	return func(cfg *createConfig) {
		cfg.skipCompression = append(cfg.skipCompression, fns...)
	}
}

// CreateWithMaxFiles limits the number of files. Zero uses DefaultMaxFiles;
// negative disables the limit.
func CreateWithMaxFiles(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.maxFiles = n
	}
}

// CreateWithWorkers sets the number of files compressed in parallel.
// Values <= 0 use GOMAXPROCS.
func CreateWithWorkers(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.workers = n
	}
}

// CreateWithLogger sets the logger for archive creation.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(cfg *createConfig) {
		cfg.logger = logger
	}
}

// shouldSkip checks if any predicate returns true for the given file.
func (cfg *createConfig) shouldSkip(path string, info fs.FileInfo) bool {
	for _, fn := range cfg.skipCompression {
		if fn != nil && fn(path, info) {
			return true
		}
	}
	return false
}
