package storage

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	input  string            // absolute path to the input (staging) root
	output string            // absolute path to the output root
	custom map[string]string // custom roots keyed by root id
}

// NewFS creates an FS provider. Input and output directories must already
// exist; custom maps root ids to additional readable roots.
func NewFS(input, output string, custom map[string]string) (*FS, error) {
	absIn, err := absDir(input)
	if err != nil {
		return nil, err
	}
	absOut, err := absDir(output)
	if err != nil {
		return nil, err
	}
	cr := make(map[string]string, len(custom))
	for id, p := range custom {
		abs, err := absDir(p)
		if err != nil {
			return nil, fmt.Errorf("storage: custom root %q: %w", id, err)
		}
		cr[id] = abs
	}
	return &FS{input: absIn, output: absOut, custom: cr}, nil
}

func absDir(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return abs, nil
}

// root returns the absolute root directory for a scope.
func (f *FS) root(scope models.Scope, rootID string) (string, error) {
	switch scope {
	case models.ScopeInput:
		return f.input, nil
	case models.ScopeOutput:
		return f.output, nil
	case models.ScopeCustom:
		r, ok := f.custom[rootID]
		if !ok {
			return "", fmt.Errorf("storage: unknown custom root: %q", rootID)
		}
		return r, nil
	}
	return "", fmt.Errorf("storage: unknown scope: %q", scope)
}

// safePath resolves a relative path against root and rejects any result
// that escapes it (directory traversal).
func safePath(root, rel string) (string, error) {
	if rel == "" {
		return root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) && abs != root {
		return "", fmt.Errorf("storage: path escapes media root: %s", rel)
	}
	return abs, nil
}

// List walks the scope root and returns metadata for every regular file.
func (f *FS) List(scope models.Scope, rootID string) ([]models.AssetMetadata, error) {
	root, err := f.root(scope, rootID)
	if err != nil {
		return nil, err
	}
	var out []models.AssetMetadata
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		sub := ""
		name := rel
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			sub, name = rel[:i], rel[i+1:]
		}
		out = append(out, models.AssetMetadata{
			Filename:  name,
			Subfolder: sub,
			Scope:     scope,
			Size:      info.Size(),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a media file.
func (f *FS) Read(scope models.Scope, rootID, rel string) ([]byte, error) {
	abs, err := f.Abs(scope, rootID, rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Abs resolves rel within the scope root, rejecting traversal.
func (f *FS) Abs(scope models.Scope, rootID, rel string) (string, error) {
	root, err := f.root(scope, rootID)
	if err != nil {
		return "", err
	}
	return safePath(root, rel)
}

// Stage copies the source file into the input root. When the destination
// already holds identical content the existing copy is reused; a name
// collision with different content uniquifies the destination name.
func (f *FS) Stage(srcScope models.Scope, srcRootID, rel, destSubfolder string) (*StagedFile, error) {
	data, err := f.Read(srcScope, srcRootID, rel)
	if err != nil {
		return nil, err
	}
	name := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		name = rel[i+1:]
	}

	destRel := name
	if destSubfolder != "" {
		destRel = destSubfolder + "/" + name
	}
	abs, err := safePath(f.input, destRel)
	if err != nil {
		return nil, err
	}

	if existing, readErr := os.ReadFile(abs); readErr == nil {
		if bytes.Equal(existing, data) {
			return &StagedFile{Name: name, Subfolder: destSubfolder, AbsPath: abs}, nil
		}
		name, abs, err = f.uniquify(destSubfolder, name)
		if err != nil {
			return nil, err
		}
	}

	if err := atomicWrite(abs, data); err != nil {
		return nil, err
	}
	return &StagedFile{Name: name, Subfolder: destSubfolder, AbsPath: abs}, nil
}

// uniquify finds a free "name (n).ext" variant under the input root.
func (f *FS) uniquify(sub, name string) (string, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		rel := cand
		if sub != "" {
			rel = sub + "/" + cand
		}
		abs, err := safePath(f.input, rel)
		if err != nil {
			return "", "", err
		}
		if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
			return cand, abs, nil
		}
	}
}

// atomicWrite writes content: tmp file, fsync, rename.
func atomicWrite(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ehwaz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from a scope root.
func (f *FS) Delete(scope models.Scope, rootID, rel string) error {
	abs, err := f.Abs(scope, rootID, rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", rel, err)
	}
	return nil
}
