package model

import "strings"

// EntryKind tags a remote listing entry.
type EntryKind int

const (
	EntryFile EntryKind = iota
	EntryDirectory
)

func (k EntryKind) String() string {
	if k == EntryDirectory {
		return "directory"
	}
	return "file"
}

// RemoteEntry is one element of a remote directory listing.
// Path is relative to the storage root, without leading or trailing slash.
type RemoteEntry struct {
	Kind EntryKind
	Path string
	Size int64
}

// File builds a file entry.
func File(path string) RemoteEntry {
	return RemoteEntry{Kind: EntryFile, Path: CleanRemotePath(path)}
}

// Directory builds a directory entry.
func Directory(path string) RemoteEntry {
	return RemoteEntry{Kind: EntryDirectory, Path: CleanRemotePath(path)}
}

func (e RemoteEntry) IsDir() bool { return e.Kind == EntryDirectory }

// Name is the last path element.
func (e RemoteEntry) Name() string {
	if i := strings.LastIndex(e.Path, "/"); i >= 0 {
		return e.Path[i+1:]
	}
	return e.Path
}

// CleanRemotePath strips leading and trailing slashes.
func CleanRemotePath(p string) string {
	return strings.Trim(p, "/")
}

// ContainsDir reports whether entries hold a directory at path.
func ContainsDir(entries []RemoteEntry, path string) bool {
	path = CleanRemotePath(path)
	for _, e := range entries {
		if e.IsDir() && e.Path == path {
			return true
		}
	}
	return false
}
