// Package corpus loads the inputs of an analysis: source files and criteria.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/codecritic/internal/model"
)

// ErrNoFiles is returned when nothing under the given roots matched
var ErrNoFiles = errors.New("no source files found")

// Options filter which files are loaded
type Options struct {
	Extensions   []string // Allowlist including the dot; empty accepts every file
	ExcludeDirs  []string // Directory base names to skip
	MaxFileBytes int64    // Larger files are skipped; 0 means no limit
	MaxFiles     int      // Stop after this many files; 0 means no limit
}

// OptionsFromConfig converts the corpus section of the config file
func OptionsFromConfig(cfg model.CorpusConfig) Options {
	return Options{
		Extensions:   cfg.Extensions,
		ExcludeDirs:  cfg.ExcludeDirs,
		MaxFileBytes: cfg.MaxFileBytes,
		MaxFiles:     cfg.MaxFiles,
	}
}

// Skipped describes a file that was found but not loaded
type Skipped struct {
	Path   string
	Reason string
}

// LoadFiles walks each root (a file or a directory) and returns matching files
// in lexical path order. With one root, paths are relative to it; with several,
// each path keeps its root as prefix so equal names stay distinguishable.
func LoadFiles(roots []string, opts Options) ([]model.SourceFile, []Skipped, error) {
	var (
		files   []model.SourceFile
		skipped []Skipped
	)
	multi := len(roots) > 1

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			// Explicitly named files bypass the extension filter
			name := filepath.Base(root)
			if multi {
				name = filepath.ToSlash(filepath.Clean(root))
			}
			f, skip, err := readFile(root, name, info, opts)
			if err != nil {
				return nil, nil, err
			}
			if skip != "" {
				skipped = append(skipped, Skipped{Path: root, Reason: skip})
				continue
			}
			files = append(files, f)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && slices.Contains(opts.ExcludeDirs, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !opts.accepts(path) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			if multi {
				rel = filepath.Join(root, rel)
			}
			f, skip, err := readFile(path, filepath.ToSlash(rel), info, opts)
			if err != nil {
				return err
			}
			if skip != "" {
				skipped = append(skipped, Skipped{Path: rel, Reason: skip})
				return nil
			}
			files = append(files, f)
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	slices.SortStableFunc(files, func(a, b model.SourceFile) int {
		return strings.Compare(a.Path, b.Path)
	})

	if opts.MaxFiles > 0 && len(files) > opts.MaxFiles {
		for _, f := range files[opts.MaxFiles:] {
			skipped = append(skipped, Skipped{Path: f.Path, Reason: "file limit reached"})
		}
		files = files[:opts.MaxFiles]
	}

	if len(files) == 0 {
		return nil, skipped, ErrNoFiles
	}
	return files, skipped, nil
}

func (o Options) accepts(path string) bool {
	if len(o.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range o.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// readFile returns a non-empty skip reason instead of an error for files
// that exist but should not be sent to the model
func readFile(path, display string, info fs.FileInfo, opts Options) (model.SourceFile, string, error) {
	if opts.MaxFileBytes > 0 && info.Size() > opts.MaxFileBytes {
		return model.SourceFile{}, fmt.Sprintf("larger than %d bytes", opts.MaxFileBytes), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.SourceFile{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return model.SourceFile{}, "binary or non-UTF-8 content", nil
	}

	return model.SourceFile{Path: display, Content: string(data)}, "", nil
}
