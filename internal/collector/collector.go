// Package collector walks the configured input roots and produces the
// ordered file manifest the Compressor streams into the payload.
package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/errs"
)

// Entry describes a single file destined for the install tree.
type Entry struct {
	LogicalPath string
	SourcePath  string
	Size        uint64
	ModTime     int64
}

// Manifest is the ordered sequence of Entry values that becomes the
// payload's physical order.
type Manifest struct {
	Entries []Entry
}

// Collect walks cfg.Inputs relative to baseDir, applying cfg.Exclude,
// and returns a deterministic, duplicate-free Manifest (spec §4.1).
func Collect(cfg *config.Config, baseDir string) (*Manifest, error) {
	seen := make(map[string]string) // logical path -> source path, for duplicate detection
	visited := make(map[visitedKey]bool)
	var entries []Entry

	for _, input := range cfg.Inputs {
		rootPath := input.Path
		if !filepath.IsAbs(rootPath) {
			rootPath = filepath.Join(baseDir, rootPath)
		}

		info, err := os.Lstat(rootPath)
		if err != nil {
			return nil, fmt.Errorf("%w: stat input %q: %v", errs.ErrCollectorIO, input.Path, err)
		}

		rootBase := filepath.Base(filepath.Clean(rootPath))

		if !info.IsDir() {
			logical := rootBase
			if err := addEntry(&entries, seen, logical, rootPath, info); err != nil {
				return nil, err
			}
			continue
		}

		walker := &walk{
			cfg:       cfg,
			input:     input,
			rootPath:  filepath.Clean(rootPath),
			rootBase:  rootBase,
			visited:   visited,
			seen:      seen,
			entriesOut: &entries,
		}
		if err := walker.run(); err != nil {
			return nil, err
		}
	}

	return &Manifest{Entries: entries}, nil
}

type visitedKey struct {
	dev, ino uint64
}

type walk struct {
	cfg        *config.Config
	input      config.InputRoot
	rootPath   string
	rootBase   string
	visited    map[visitedKey]bool
	seen       map[string]string
	entriesOut *[]Entry
}

func (w *walk) run() error {
	return w.walkDir(w.rootPath, "")
}

// walkDir walks dir (an absolute path) whose contents map to the
// relative-path prefix rel under the input root. Directory entries at
// each level are sorted lexicographically for reproducible builds.
func (w *walk) walkDir(dir, rel string) error {
	items, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: read dir %q: %v", errs.ErrCollectorIO, dir, err)
	}

	names := make([]string, 0, len(items))
	byName := make(map[string]os.DirEntry, len(items))
	for _, it := range items {
		names = append(names, it.Name())
		byName[it.Name()] = it
	}
	sort.Strings(names)

	for _, name := range names {
		item := byName[name]
		childPath := filepath.Join(dir, name)
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		info, err := os.Lstat(childPath)
		if err != nil {
			return fmt.Errorf("%w: lstat %q: %v", errs.ErrCollectorIO, childPath, err)
		}

		if isExcluded(w.cfg.Exclude, childRel, info.IsDir()) {
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(childPath)
			if err != nil {
				return fmt.Errorf("%w: resolve symlink %q: %v", errs.ErrCollectorIO, childPath, err)
			}
			if !strings.HasPrefix(target, w.rootPath+string(filepath.Separator)) && target != w.rootPath {
				return fmt.Errorf("%w: %q -> %q", errs.ErrSymlinkEscapesRoot, childPath, target)
			}
			targetInfo, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("%w: stat symlink target %q: %v", errs.ErrCollectorIO, target, err)
			}
			if targetInfo.IsDir() {
				key, ok := inodeKey(target, targetInfo)
				if ok {
					if w.visited[key] {
						return fmt.Errorf("%w: %q", errs.ErrSymlinkCycle, childPath)
					}
					w.visited[key] = true
				}
				if err := w.walkDir(target, childRel); err != nil {
					return err
				}
				continue
			}
			if err := w.addFile(childRel, target, targetInfo); err != nil {
				return err
			}
			continue
		}

		if item.IsDir() {
			if !w.input.Recursive {
				continue
			}
			if err := w.walkDir(childPath, childRel); err != nil {
				return err
			}
			continue
		}

		if err := w.addFile(childRel, childPath, info); err != nil {
			return err
		}
	}

	return nil
}

func (w *walk) addFile(rel, sourcePath string, info os.FileInfo) error {
	logical := rel
	if w.input.PreserveStructure {
		logical = w.rootBase + "/" + rel
	}
	return addEntry(w.entriesOut, w.seen, logical, sourcePath, info)
}

func addEntry(entries *[]Entry, seen map[string]string, logical, sourcePath string, info os.FileInfo) error {
	if prior, ok := seen[logical]; ok {
		return fmt.Errorf("%w: %q (from %q and %q)", errs.ErrDuplicateLogicalPath, logical, prior, sourcePath)
	}
	seen[logical] = sourcePath
	*entries = append(*entries, Entry{
		LogicalPath: logical,
		SourcePath:  sourcePath,
		Size:        uint64(info.Size()),
		ModTime:     info.ModTime().Unix(),
	})
	return nil
}

// Now is a replaceable clock. Collect does not read it: each Entry's
// ModTime comes from the file's own modification time.
var Now = time.Now
