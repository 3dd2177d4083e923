// Package bundle collects optimized contract artifacts into the
// distributable release bundle: deterministically named wasm files plus a
// checksum manifest. Assembly is a pure data transformation; writing the
// bundle to a filesystem is the only side effect, and it goes through the
// billy abstraction so tests run against an in-memory filesystem.
package bundle

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/opencontainers/go-digest"

	"github.com/ISTIFANUS-N/strellerminds-release/version"
)

// ManifestName is the checksum manifest file attached alongside the
// artifacts. The manifest lists every artifact but never itself.
const ManifestName = "SHA256SUMS"

// ErrDuplicateContract is returned when two artifacts share a contract
// name. Upstream uniqueness should make this unreachable; it is checked
// anyway because a silently overwritten artifact would corrupt a release.
var ErrDuplicateContract = errors.New("duplicate contract name")

// Artifact is one compiled contract moving through the pipeline. Raw is
// set by the builder, Optimized by the optimizer; each field is written
// exactly once.
type Artifact struct {
	Contract  string
	Raw       []byte
	Optimized []byte
}

// File is a named member of the assembled bundle.
type File struct {
	Name string
	Data []byte
}

// ChecksumEntry is one line of the manifest.
type ChecksumEntry struct {
	Filename  string
	DigestHex string
}

// Bundle is the assembled, checksummed release payload.
type Bundle struct {
	Tag      version.Tag
	Files    []File
	Entries  []ChecksumEntry
	Manifest []byte
}

// FileName is the deterministic artifact name for a contract at a version:
// <contract>-<major>.<minor>.<patch>[-<preRelease>].wasm.
func FileName(contract string, tag version.Tag) string {
	return fmt.Sprintf("%s-%s.wasm", contract, tag.Version())
}

// Assemble names every artifact, computes the checksum manifest, and
// returns the bundle sorted by filename. Artifacts must have their
// optimized bytes set.
func Assemble(tag version.Tag, artifacts []Artifact) (*Bundle, error) {
	seen := make(map[string]struct{}, len(artifacts))
	files := make([]File, 0, len(artifacts))

	for _, a := range artifacts {
		if _, ok := seen[a.Contract]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateContract, a.Contract)
		}
		seen[a.Contract] = struct{}{}

		if a.Optimized == nil {
			return nil, fmt.Errorf("artifact %q has no optimized bytes", a.Contract)
		}
		files = append(files, File{Name: FileName(a.Contract, tag), Data: a.Optimized})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	entries := make([]ChecksumEntry, 0, len(files))
	var manifest strings.Builder
	for _, f := range files {
		hex := digest.SHA256.FromBytes(f.Data).Encoded()
		entries = append(entries, ChecksumEntry{Filename: f.Name, DigestHex: hex})
		fmt.Fprintf(&manifest, "%s  %s\n", hex, f.Name)
	}

	return &Bundle{
		Tag:      tag,
		Files:    files,
		Entries:  entries,
		Manifest: []byte(manifest.String()),
	}, nil
}

// Write materializes the bundle under dir: one file per artifact plus the
// manifest. dir is created when missing.
func (b *Bundle) Write(fsys billy.Filesystem, dir string) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dist dir %s: %w", dir, err)
	}

	for _, f := range b.Files {
		path := fsys.Join(dir, f.Name)
		if err := util.WriteFile(fsys, path, f.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write artifact %s: %w", f.Name, err)
		}
	}

	path := fsys.Join(dir, ManifestName)
	if err := util.WriteFile(fsys, path, b.Manifest, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
