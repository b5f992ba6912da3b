// Package treeops implements bounded-depth recursive copy and delete over a
// filesystem hierarchy. Failures are isolated per node: a failed subtree
// never rolls back siblings that were already processed.
package treeops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jdelgadillo/msh/core/logger"
	"github.com/spf13/afero"
)

var (
	// ErrRecursionLimit reports a traversal deeper than the configured
	// bound; only the subtree rooted at the offending node fails.
	ErrRecursionLimit = errors.New("maximum recursion depth exceeded")

	// ErrPathTooLong reports a composed path longer than the configured
	// maximum. Paths are never silently truncated.
	ErrPathTooLong = errors.New("path too long")
)

// TypeMismatchError reports an attempt to copy a directory onto an existing
// non-directory. The destination is left untouched.
type TypeMismatchError struct {
	Src  string
	Dest string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot overwrite non-directory %q with directory %q", e.Dest, e.Src)
}

const copyBufferSize = 32 * 1024

// Options bound a traversal.
type Options struct {
	// MaxDepth is the recursion bound.
	MaxDepth int
	// MaxPathLen is the longest composed path allowed.
	MaxPathLen int
}

// Ops performs recursive tree operations on a filesystem.
type Ops struct {
	fs   afero.Fs
	opts Options
	log  *logger.Logger
}

func New(fsys afero.Fs, opts Options, log *logger.Logger) *Ops {
	return &Ops{fs: fsys, opts: opts, log: log}
}

// Delete removes path and, for directories, everything beneath it. The path's
// final component is never followed if it is a symbolic link; the link itself
// is removed. A failed node aborts only that node's subtree; the first
// failure is returned, later ones are logged.
func (o *Ops) Delete(path string, depth int) error {
	if depth > o.opts.MaxDepth {
		return fmt.Errorf("delete %s: %w", path, ErrRecursionLimit)
	}

	info, err := o.lstat(path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	if !info.IsDir() {
		if err := o.fs.Remove(path); err != nil {
			return fmt.Errorf("delete %s: %w", path, err)
		}
		return nil
	}

	entries, err := afero.ReadDir(o.fs, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	var firstErr error
	for _, entry := range entries {
		child, err := o.join(path, entry.Name())
		if err == nil {
			err = o.Delete(child, depth+1)
		}
		if err != nil {
			o.reportFailure("delete", path, &firstErr, err)
		}
	}
	if firstErr != nil {
		return firstErr
	}

	if err := o.fs.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Copy copies src to dest. Directories are copied recursively, preserving
// permission bits; regular files are copied byte for byte. A failed node
// aborts only that node's subtree.
func (o *Ops) Copy(src, dest string, depth int) error {
	if depth > o.opts.MaxDepth {
		return fmt.Errorf("copy %s: %w", src, ErrRecursionLimit)
	}

	info, err := o.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	if !info.IsDir() {
		return o.copyFile(src, dest, info)
	}

	if destInfo, err := o.fs.Stat(dest); err == nil && !destInfo.IsDir() {
		return &TypeMismatchError{Src: src, Dest: dest}
	}

	if err := o.fs.Mkdir(dest, info.Mode().Perm()); err != nil && !os.IsExist(err) {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := o.fs.Chmod(dest, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	entries, err := afero.ReadDir(o.fs, src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	var firstErr error
	for _, entry := range entries {
		srcChild, err := o.join(src, entry.Name())
		if err == nil {
			var destChild string
			destChild, err = o.join(dest, entry.Name())
			if err == nil {
				err = o.Copy(srcChild, destChild, depth+1)
			}
		}
		if err != nil {
			o.reportFailure("copy", src, &firstErr, err)
		}
	}
	return firstErr
}

// CopyFile copies one regular file; dest may be an existing directory, in
// which case the source's base name is appended to it.
func (o *Ops) CopyFile(src, dest string) error {
	info, err := o.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("copy %s: is a directory", src)
	}
	return o.copyFile(src, dest, info)
}

// ResolveDest computes the effective destination for src: an existing
// directory destination gets src's base name joined onto it.
func (o *Ops) ResolveDest(src, dest string) (string, error) {
	if info, err := o.fs.Stat(dest); err == nil && info.IsDir() {
		return o.join(dest, filepath.Base(src))
	}
	if len(dest) > o.opts.MaxPathLen {
		return "", fmt.Errorf("%s: %w", dest, ErrPathTooLong)
	}
	return dest, nil
}

func (o *Ops) copyFile(src, dest string, info os.FileInfo) error {
	dest, err := o.ResolveDest(src, dest)
	if err != nil {
		return err
	}

	in, err := o.fs.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	out, err := o.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	buf := make([]byte, copyBufferSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			wn, werr := out.Write(buf[:n])
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				out.Close()
				return fmt.Errorf("copy %s: %w", src, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			return fmt.Errorf("copy %s: %w", src, rerr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := o.fs.Chmod(dest, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// join composes dir/name, failing explicitly rather than truncating when the
// result exceeds the configured maximum length.
func (o *Ops) join(dir, name string) (string, error) {
	joined := filepath.Join(dir, name)
	if len(joined) > o.opts.MaxPathLen {
		return "", fmt.Errorf("%s: %w", joined, ErrPathTooLong)
	}
	return joined, nil
}

// lstat queries a path's metadata without following a symbolic link at the
// final component, falling back to Stat on filesystems without link support.
func (o *Ops) lstat(path string) (os.FileInfo, error) {
	if lstater, ok := o.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return o.fs.Stat(path)
}

// reportFailure keeps the first error for the caller and logs the rest so
// sibling failures after the first aren't silently dropped.
func (o *Ops) reportFailure(op, path string, firstErr *error, err error) {
	if *firstErr == nil {
		*firstErr = err
		return
	}
	o.log.LogTreeOpFailure(op, path, err)
}
