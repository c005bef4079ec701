// Package logset finds the per-process logs written by strace -ff -o <prefix>
// and scans them into a process table.
package logset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mrzor/strace-tree/internal/eventprocessor"
	"github.com/mrzor/strace-tree/internal/procmeta"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrNoLogs is returned when no <prefix>.<pid> file exists under the root.
var ErrNoLogs = errors.New("no strace logs found")

// File is one process log.
type File struct {
	PID     int
	Path    string
	ModTime time.Time
}

// Discover lists the <prefix>.<pid> files directly under root, ordered by PID.
// Names whose suffix is not a decimal PID are ignored.
func Discover(fs afero.Fs, root, prefix string) ([]File, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pid, ok := parsePID(entry.Name(), prefix)
		if !ok {
			continue
		}
		files = append(files, File{
			PID:     pid,
			Path:    filepath.Join(root, entry.Name()),
			ModTime: entry.ModTime(),
		})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w matching %s.<pid> in %s", ErrNoLogs, prefix, root)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].PID < files[j].PID })
	return files, nil
}

func parsePID(name, prefix string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, prefix+".")
	if !ok || suffix == "" {
		return 0, false
	}
	for i := 0; i < len(suffix); i++ {
		if suffix[i] < '0' || suffix[i] > '9' {
			return 0, false
		}
	}
	pid, err := strconv.Atoi(suffix)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// LatestModTime returns the most recent modification time among files.
func LatestModTime(files []File) time.Time {
	var latest time.Time
	for _, f := range files {
		if f.ModTime.After(latest) {
			latest = f.ModTime
		}
	}
	return latest
}

// Scan is the outcome of ScanAll.
type Scan struct {
	Table *procmeta.Table
	// Skipped combines the errors of unreadable and empty logs.
	Skipped error
}

// ScanAll scans every file with at most jobs concurrent readers and merges
// the records into a new table.
//
// Unreadable and empty logs are skipped and never abort the scan. An error
// is only returned when ctx is canceled or a PID is seen twice.
func ScanAll(ctx context.Context, fs afero.Fs, files []File, jobs int) (*Scan, error) {
	table := procmeta.NewTable()

	var (
		mu      sync.Mutex
		skipped error
	)
	skip := func(f File, err error) {
		log.WithFields(log.Fields{"pid": f.PID, "path": f.Path}).Warnf("skipping log: %v", err)
		mu.Lock()
		skipped = multierr.Append(skipped, err)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for _, f := range files {
		f := f
		g.Go(func() error {
			result, err := scanFile(gctx, fs, f)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				skip(f, err)
				return nil
			}

			if result.Err != nil {
				for _, e := range multierr.Errors(result.Err) {
					log.WithField("pid", f.PID).Warn(e)
				}
			}
			return table.Put(result.Record)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithField("processes", table.Len()).Debug("scanned logs")
	return &Scan{Table: table, Skipped: skipped}, nil
}

func scanFile(ctx context.Context, fs afero.Fs, f File) (*eventprocessor.Result, error) {
	file, err := fs.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	return eventprocessor.ScanReader(ctx, f.PID, file)
}
