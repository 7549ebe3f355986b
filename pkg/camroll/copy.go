package camroll

import (
	"fmt"
	"os"

	"github.com/otiai10/copy"
)

// Copier copies a staged source into a library asset, returning the bytes written.
type Copier interface {
	Copy(src string, dst string) (int64, error)
}

// WholeFileCopier reads the whole source into memory and writes it verbatim.
type WholeFileCopier struct{}

// Copy implements Copier.
func (WholeFileCopier) Copy(src string, dst string) (int64, error) {
	bs, err := os.ReadFile(src)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	if err := os.WriteFile(dst, bs, 0o644); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(len(bs)), nil
}

// StreamCopier copies without buffering the whole file, for large videos.
type StreamCopier struct{}

// Copy implements Copier.
func (StreamCopier) Copy(src string, dst string) (int64, error) {
	if err := copy.Copy(src, dst, copy.Options{
		Sync: true,
		// Symlinked sources are copied by content; the destination already exists as a file.
		OnSymlink: func(string) copy.SymlinkAction { return copy.Deep },
	}); err != nil {
		return 0, fmt.Errorf("copy: %w", err)
	}
	st, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	return st.Size(), nil
}
