package unicore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tvbhpc/pkg/model"
)

// Storage is a UNICORE storage endpoint (a home directory, a job's working
// directory, a scratch area...).
type Storage struct {
	t   *Transport
	url string
}

func NewStorage(t *Transport, storageURL string) *Storage {
	return &Storage{t: t, url: strings.TrimRight(storageURL, "/")}
}

// ResourceURL is the storage's REST URL, e.g. ".../rest/core/storages/HOME".
func (s *Storage) ResourceURL() string { return s.url }

type storageProperties struct {
	MountPoint string `json:"mountPoint"`
}

// MountPoint returns the filesystem path of the storage on the site.
func (s *Storage) MountPoint(ctx context.Context) (string, error) {
	var props storageProperties
	if err := s.t.getJSON(ctx, s.url, &props); err != nil {
		return "", err
	}
	return props.MountPoint, nil
}

func (s *Storage) fileURL(p string) string {
	p = model.CleanRemotePath(p)
	if p == "" {
		return s.url + "/files/"
	}
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.url + "/files/" + strings.Join(segs, "/")
}

type fileMeta struct {
	IsDirectory bool  `json:"isDirectory"`
	Size        int64 `json:"size"`
}

// ListDir lists the direct children of dir (storage root when empty).
// Entries are sorted by path.
func (s *Storage) ListDir(ctx context.Context, dir string) ([]model.RemoteEntry, error) {
	var doc struct {
		IsDirectory bool                `json:"isDirectory"`
		Content     map[string]fileMeta `json:"content"`
	}
	if err := s.t.getJSON(ctx, s.fileURL(dir), &doc); err != nil {
		return nil, err
	}
	if !doc.IsDirectory && doc.Content == nil {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries := make([]model.RemoteEntry, 0, len(doc.Content))
	for p, meta := range doc.Content {
		e := model.File(p)
		if meta.IsDirectory {
			e = model.Directory(p)
		}
		e.Size = meta.Size
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Mkdir creates dir on the storage.
func (s *Storage) Mkdir(ctx context.Context, dir string) error {
	_, err := s.t.postJSON(ctx, s.fileURL(dir), map[string]string{})
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// Download streams the remote file at p into w.
func (s *Storage) Download(ctx context.Context, p string, w io.Writer) error {
	req, err := s.t.newRequest(ctx, http.MethodGet, s.fileURL(p), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := s.t.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("downloading %s: %w", p, err)
	}
	return nil
}

// Upload copies a local file to the storage. An empty remoteName keeps the
// local base name.
func (s *Storage) Upload(ctx context.Context, localPath, remoteName string) error {
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := s.t.newRequest(ctx, http.MethodPut, s.fileURL(remoteName), f)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if info, err := f.Stat(); err == nil {
		req.ContentLength = info.Size()
	}

	resp, err := s.t.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
