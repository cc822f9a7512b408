// Package ingest migrates object definition files into the record store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"

	"github.com/agentic-research/monfs/internal/codec"
	"github.com/agentic-research/monfs/internal/metrics"
	"github.com/agentic-research/monfs/internal/objdef"
	"github.com/agentic-research/monfs/internal/store"
)

// DefaultInclude selects definition files at any depth.
const DefaultInclude = "**/*.cfg"

// ErrNotUTF8 is reported for files that are not valid UTF-8.
var ErrNotUTF8 = errors.New("file is not valid UTF-8")

// Pipeline walks a directory tree and inserts one record per define block.
type Pipeline struct {
	Store  store.Store
	Logger *zap.Logger
	// Include is a doublestar pattern matched against slash-separated paths
	// relative to the walk root. Empty means DefaultInclude.
	Include string
	// OnFile, when set, is called before each selected file is processed.
	OnFile func(path string)
}

// Summary counts what a run did. Inserts are not transactional: when a
// file fails partway, the records inserted before the failure stay in the
// store. They are included in Records and also counted in Partial.
type Summary struct {
	Files   int
	Blocks  int
	Records int
	// Partial counts records kept from files listed in Errors.
	Partial   int
	Failed    int
	Malformed int
	Errors    map[string]error
}

// Err joins the per-file errors, or returns nil when every file succeeded.
// A non-nil Err does not mean nothing was stored; see Records and Partial.
func (s Summary) Err() error {
	if len(s.Errors) == 0 {
		return nil
	}
	paths := make([]string, 0, len(s.Errors))
	for p := range s.Errors {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	errs := make([]error, len(paths))
	for i, p := range paths {
		errs[i] = s.Errors[p]
	}
	return errors.Join(errs...)
}

// Run ingests every selected file under root, sequentially in path order.
// A file that cannot be read or stored is logged, counted and skipped; Run
// itself fails only when root cannot be walked or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, root string) (Summary, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sum := Summary{Errors: make(map[string]error)}

	files, err := p.Select(ctx, root)
	if err != nil {
		return sum, err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if p.OnFile != nil {
			p.OnFile(path)
		}
		sum.Files++
		blocks, records, malformed, err := p.ingestFile(ctx, log, path)
		sum.Blocks += blocks
		sum.Records += records
		sum.Malformed += malformed
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sum, ctxErr
			}
			log.Error("ingest file failed", zap.String("path", path), zap.Error(err))
			metrics.IngestFailures.Inc()
			sum.Failed++
			sum.Partial += records
			sum.Errors[path] = err
		}
	}

	log.Info("ingest complete",
		zap.String("root", root),
		zap.Int("files", sum.Files),
		zap.Int("records", sum.Records),
		zap.Int("failed", sum.Failed),
		zap.Int("malformed_lines", sum.Malformed),
	)
	return sum, nil
}

// Select returns the regular files under root matching Include, sorted.
func (p *Pipeline) Select(ctx context.Context, root string) ([]string, error) {
	pattern := p.Include
	if pattern == "" {
		pattern = DefaultInclude
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid include pattern %q", pattern)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("ingest root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest root %s: not a directory", root)
	}

	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped like the rest of the walk.
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil || !ok {
			return err
		}
		mu.Lock()
		files = append(files, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, log *zap.Logger, path string) (blocks, records, malformed int, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, 0, err
	}
	if !utf8.Valid(src) {
		return 0, 0, 0, fmt.Errorf("%s: %w (detected %s)", path, ErrNotUTF8, DetectCharset(src))
	}

	for b := range objdef.Blocks(src) {
		blocks++
		for _, m := range b.Malformed {
			malformed++
			log.Warn("skipping malformed line",
				zap.String("path", path), zap.Int("line", m.Line), zap.String("text", m.Text))
		}
		if b.Truncated {
			log.Warn("skipping unterminated block",
				zap.String("path", path), zap.Int("line", b.Line), zap.String("type", b.Type))
			continue
		}
		if b.Type == "" {
			log.Warn("skipping block without type", zap.String("path", path), zap.Int("line", b.Line))
			continue
		}
		id, err := p.Store.Insert(ctx, codec.Encode(b))
		if err != nil {
			return blocks, records, malformed, fmt.Errorf("%s:%d: insert %s: %w", path, b.Line, b.Type, err)
		}
		records++
		metrics.IngestedRecords.Inc()
		log.Debug("record inserted", zap.String("id", id), zap.String("type", b.Type))
	}
	return blocks, records, malformed, nil
}

// DetectCharset names the most likely charset of data.
func DetectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "unknown"
	}
	return strings.ToLower(result.Charset)
}
