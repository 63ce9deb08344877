package hpc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tvbhpc/pkg/model"
)

// Stager downloads job results into a local directory.
type Stager struct {
	baseDir string
	now     func() time.Time
	out     io.Writer
	logger  *slog.Logger
}

// NewStager creates results directories under baseDir ("" for the current
// directory).
func NewStager(s Settings, baseDir string) *Stager {
	return &Stager{
		baseDir: baseDir,
		now:     time.Now,
		out:     s.Out,
		logger:  s.logger(),
	}
}

// StageOut copies the files of the job's results directory, the single
// subdirectory of its working directory, into a new local directory and
// returns that directory's path. Nested directories are not copied.
//
// Remote failures are returned as *RemoteError; zero or several candidate
// directories as ErrNoResultsDir or *MultipleResultsDirsError. Anything else
// is a local failure.
func (s *Stager) StageOut(ctx context.Context, job Job) (string, error) {
	wd, err := job.WorkingDir(ctx)
	if err != nil {
		return "", &RemoteError{Op: "opening working directory", Err: err}
	}
	content, err := wd.ListDir(ctx, "")
	if err != nil {
		return "", &RemoteError{Op: "listing working directory", Err: err}
	}
	fmt.Fprintf(s.out, "Contents of working dir: %s\n", entryNames(content))

	resultsDir, err := findResultsDir(content)
	if err != nil {
		return "", err
	}
	name := resultsDir.Name()
	fmt.Fprintf(s.out, "Found sub dir: %s\n", name)

	results, err := wd.ListDir(ctx, resultsDir.Path)
	if err != nil {
		return "", &RemoteError{Op: "listing results directory", Err: err}
	}
	fmt.Fprintf(s.out, "Contents of results dir: %s\n", entryNames(results))

	local := filepath.Join(s.baseDir, name)
	if _, err := os.Stat(local); err == nil {
		local += CollisionSuffix(s.now())
	}
	if err := os.Mkdir(local, 0755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}

	fmt.Fprintf(s.out, "Downloading results to %s...\n", local)
	var total uint64
	for _, e := range results {
		if e.IsDir() {
			s.logger.Debug("skipping nested directory", "path", e.Path)
			continue
		}
		if err := s.download(ctx, wd, e, filepath.Join(local, path.Base(e.Path))); err != nil {
			return local, err
		}
		if e.Size > 0 {
			total += uint64(e.Size)
		}
	}
	s.logger.Info("results staged", "dir", local, "size", humanize.Bytes(total))
	return local, nil
}

func (s *Stager) download(ctx context.Context, wd Storage, e model.RemoteEntry, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if err := wd.Download(ctx, e.Path, f); err != nil {
		f.Close()
		return &RemoteError{Op: "downloading " + e.Path, Err: err}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	s.logger.Debug("downloaded", "path", e.Path, "size", humanize.Bytes(uint64(max(e.Size, 0))))
	return nil
}

func findResultsDir(entries []model.RemoteEntry) (model.RemoteEntry, error) {
	var dirs []model.RemoteEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	switch len(dirs) {
	case 0:
		return model.RemoteEntry{}, ErrNoResultsDir
	case 1:
		return dirs[0], nil
	}
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.Name()
	}
	return model.RemoteEntry{}, &MultipleResultsDirsError{Dirs: names}
}

func entryNames(entries []model.RemoteEntry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
		if e.IsDir() {
			names[i] += "/"
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
