package publish

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// NotesFileName is where a DirHost writes the release body.
const NotesFileName = "RELEASE_NOTES.md"

// DirHost publishes releases into a local directory tree, one directory
// per tag. It backs dry runs and tests; the conflict semantics match the
// remote host, so a second publish of the same tag is refused.
type DirHost struct {
	fsys billy.Filesystem
	root string
}

// NewDirHost returns a Host writing under root on the given filesystem.
func NewDirHost(fsys billy.Filesystem, root string) *DirHost {
	return &DirHost{fsys: fsys, root: root}
}

// Publish writes the release assets and notes under <root>/<tag>.
// An existing tag directory yields ErrReleaseExists and is left untouched.
func (h *DirHost) Publish(ctx context.Context, rel Release) error {
	dir := h.fsys.Join(h.root, rel.Tag.String())

	if _, err := h.fsys.Stat(dir); err == nil {
		return fmt.Errorf("%w: tag %s", ErrReleaseExists, rel.Tag)
	} else if !errors.Is(err, os.ErrNotExist) {
		return &PublishError{Reason: fmt.Sprintf("failed to probe %s: %v", dir, err), Err: err}
	}

	if err := h.fsys.MkdirAll(dir, 0o755); err != nil {
		return &PublishError{Reason: fmt.Sprintf("failed to create %s: %v", dir, err), Err: err}
	}

	for _, asset := range rel.Assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := h.fsys.Join(dir, asset.Name)
		if err := util.WriteFile(h.fsys, path, asset.Data, 0o644); err != nil {
			return &PublishError{Reason: fmt.Sprintf("failed to write %s: %v", asset.Name, err), Err: err}
		}
	}

	notes := h.fsys.Join(dir, NotesFileName)
	if err := util.WriteFile(h.fsys, notes, []byte(rel.Body), 0o644); err != nil {
		return &PublishError{Reason: fmt.Sprintf("failed to write release notes: %v", err), Err: err}
	}
	return nil
}
