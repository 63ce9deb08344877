// Package workflow finds a compiled workflow file and the local files it
// needs on the remote site.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Locate resolves the workflow argument. absPath is empty when the file does
// not exist.
func Locate(arg string) (name, absPath string) {
	name = filepath.Base(arg)
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return name, ""
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return name, ""
	}
	return name, abs
}

// stringLiteral matches single or double quoted literals on one line.
var stringLiteral = regexp.MustCompile(`"((?:[^"\\\n]|\\.)+)"|'((?:[^'\\\n]|\\.)+)'`)

// FilesToUpload returns the regular files named by string literals in the
// workflow source, resolved against the workflow's directory. The workflow
// itself is excluded. Results are absolute, deduplicated and in order of
// first appearance.
func FilesToUpload(workflowPath string) ([]string, error) {
	src, err := os.ReadFile(workflowPath)
	if err != nil {
		return nil, fmt.Errorf("reading workflow: %w", err)
	}
	self, err := filepath.Abs(workflowPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(self)

	seen := map[string]bool{self: true}
	var files []string
	for _, m := range stringLiteral.FindAllSubmatch(src, -1) {
		lit := string(m[1])
		if lit == "" {
			lit = string(m[2])
		}
		p := lit
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[p] = true
		files = append(files, p)
	}
	return files, nil
}
