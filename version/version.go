// Package version parses and formats release tags of the form
// v<major>.<minor>.<patch>[-<preRelease>]. The parsed tag gates the whole
// release pipeline: every downstream component takes the Tag value rather
// than re-parsing the raw string.
package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidTagFormat is returned when a tag string does not match the
// release tag grammar. Check with errors.Is().
var ErrInvalidTagFormat = errors.New("invalid tag format")

// Tag is a parsed release tag. Immutable after parsing.
type Tag struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	PreRelease string
}

// Parse validates s against the release tag grammar and returns the
// structured tag. The leading "v" is mandatory. Build metadata
// ("v1.2.3+sha") is rejected: artifact file names embed the tag and must
// stay deterministic.
func Parse(s string) (Tag, error) {
	rest, ok := strings.CutPrefix(s, "v")
	if !ok {
		return Tag{}, fmt.Errorf("%w: %q is missing the v prefix", ErrInvalidTagFormat, s)
	}

	v, err := semver.StrictNewVersion(rest)
	if err != nil {
		return Tag{}, fmt.Errorf("%w: %q: %v", ErrInvalidTagFormat, s, err)
	}

	if v.Metadata() != "" {
		return Tag{}, fmt.Errorf("%w: %q carries build metadata", ErrInvalidTagFormat, s)
	}

	return Tag{
		Major:      v.Major(),
		Minor:      v.Minor(),
		Patch:      v.Patch(),
		PreRelease: v.Prerelease(),
	}, nil
}

// String formats the tag back to its canonical form. For any string
// accepted by Parse, Parse(s).String() == s.
func (t Tag) String() string {
	return "v" + t.Version()
}

// Version formats the tag without the "v" prefix, as embedded in
// artifact file names.
func (t Tag) Version() string {
	s := fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
	if t.PreRelease != "" {
		s += "-" + t.PreRelease
	}
	return s
}

// IsPrerelease reports whether the tag carries a pre-release token. This
// is the sole signal used to mark the published release as a pre-release.
func (t Tag) IsPrerelease() bool {
	return t.PreRelease != ""
}

// Compare orders two tags by semantic version precedence. It returns -1,
// 0, or 1, and is used to resolve the previous release tag.
func (t Tag) Compare(o Tag) int {
	return t.semver().Compare(o.semver())
}

func (t Tag) semver() *semver.Version {
	v := semver.New(t.Major, t.Minor, t.Patch, t.PreRelease, "")
	return v
}
