// Package publish creates the immutable release record on the hosting
// service: one release per tag, with the packaged artifacts, the checksum
// manifest, and the changelog body attached. Republishing under an
// existing tag is refused, never overwritten.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/ISTIFANUS-N/strellerminds-release/version"
)

// ErrReleaseExists is returned when a release record for the tag already
// exists. This is an informational outcome, not a defect: the release was
// published before and stays untouched. Check with errors.Is().
var ErrReleaseExists = errors.New("release already exists")

// Asset is a file attached to a release.
type Asset struct {
	Name string
	Data []byte
}

// Release is the record handed to a Host. Built exactly once per
// successful pipeline run.
type Release struct {
	Tag        version.Tag
	Title      string
	Body       string
	Prerelease bool
	Assets     []Asset
}

// Host publishes releases. Implementations must refuse an existing tag
// with ErrReleaseExists and must not retry transport failures; retries
// belong to the invoking automation.
type Host interface {
	Publish(ctx context.Context, rel Release) error
}

// PublishError reports a transport-level failure talking to the hosting
// service. The reason is surfaced verbatim.
type PublishError struct {
	Reason string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed: %s", e.Reason)
}

func (e *PublishError) Unwrap() error { return e.Err }
