package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/seifer44/lexigraph/internal/platform/logger"
)

// Record is one raw line from a source file, delivered byte-exact.
type Record struct {
	Data []byte
	Path string
}

// Source produces records onto out until exhausted (bounded sources) or the
// context is cancelled (watch sources). Implementations never parse.
type Source interface {
	Emit(ctx context.Context, out chan<- Record) error
}

// maxLineBytes bounds a single record; chunk texts are short by contract.
const maxLineBytes = 4 * 1024 * 1024

// DirSource reads every *.jsonl file in a directory in lexical order, one
// record per line.
type DirSource struct {
	Dir string
	log *logger.Logger
}

func NewDirSource(dir string, log *logger.Logger) *DirSource {
	return &DirSource{Dir: dir, log: log.With("component", "DirSource")}
}

func (s *DirSource) Emit(ctx context.Context, out chan<- Record) error {
	paths, err := listInputFiles(s.Dir)
	if err != nil {
		return err
	}
	s.log.Info("Reading input files", "dir", s.Dir, "files", len(paths))
	for _, p := range paths {
		if err := emitFileLines(ctx, p, out); err != nil {
			return err
		}
	}
	return nil
}

// WatchSource drains the directory's existing files, then follows it with
// fsnotify, streaming lines of files as they are created or appended, until
// the context is cancelled.
type WatchSource struct {
	Dir string
	log *logger.Logger

	offsets map[string]int64
}

func NewWatchSource(dir string, log *logger.Logger) *WatchSource {
	return &WatchSource{
		Dir:     dir,
		log:     log.With("component", "WatchSource"),
		offsets: make(map[string]int64),
	}
}

func (s *WatchSource) Emit(ctx context.Context, out chan<- Record) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("source: start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.Dir); err != nil {
		return fmt.Errorf("source: watch %s: %w", s.Dir, err)
	}

	paths, err := listInputFiles(s.Dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := s.drainFrom(ctx, p, out); err != nil {
			return err
		}
	}

	s.log.Info("Watching for new input", "dir", s.Dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isInputFile(ev.Name) {
				continue
			}
			if err := s.drainFrom(ctx, ev.Name, out); err != nil {
				return err
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Watcher error", "error", werr)
		}
	}
}

// drainFrom emits the lines of path past the last emitted offset. Partial
// trailing lines (no newline yet) are left for the next event.
func (s *WatchSource) drainFrom(ctx context.Context, path string, out chan<- Record) error {
	f, err := os.Open(path)
	if err != nil {
		s.log.Warn("Skipping unreadable file", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	offset := s.offsets[path]
	if _, err := f.Seek(offset, 0); err != nil {
		return fmt.Errorf("source: seek %s: %w", path, err)
	}

	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// Incomplete last line stays pending until more bytes arrive.
			break
		}
		offset += int64(len(line))
		trimmed := strings.TrimRight(string(line), "\r\n")
		if trimmed == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- Record{Data: []byte(trimmed), Path: path}:
		}
	}
	s.offsets[path] = offset
	return nil
}

func emitFileLines(ctx context.Context, path string, out chan<- Record) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		data := make([]byte, len(line))
		copy(data, line)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- Record{Data: data, Path: path}:
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("source: read %s: %w", path, err)
	}
	return nil
}

func listInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source: read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isInputFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isInputFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl", ".ndjson":
		return true
	default:
		return false
	}
}
