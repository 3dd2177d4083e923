package changelog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ISTIFANUS-N/strellerminds-release/version"
)

func mustTag(t *testing.T, s string) version.Tag {
	t.Helper()
	tag, err := version.Parse(s)
	require.NoError(t, err)
	return tag
}

var testDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func TestParseCommits(t *testing.T) {
	entries := ParseCommits([]string{
		"feat(certificate): add expiry management",
		"fix: correct multisig threshold check",
		"chore: bump dependencies",
		"not a conventional commit at all",
		"docs(readme): document prerequisites",
	})

	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Type: "feat", Scope: "certificate", Description: "add expiry management"}, entries[0])
	assert.Equal(t, Entry{Type: "fix", Description: "correct multisig threshold check"}, entries[1])
	assert.Equal(t, Entry{Type: "chore", Description: "bump dependencies"}, entries[2])
	assert.Equal(t, Entry{Type: "docs", Scope: "readme", Description: "document prerequisites"}, entries[3])
}

func TestParseCommitsMultilineBody(t *testing.T) {
	entries := ParseCommits([]string{
		"feat(proxy): support rollback\n\nAdds a rollback entrypoint to the proxy\nacross multiple lines of body.",
	})

	require.Len(t, entries, 1)
	assert.Equal(t, "feat", entries[0].Type)
	assert.Equal(t, "support rollback", entries[0].Description)
	assert.False(t, entries[0].Breaking)
}

func TestParseCommitsBreakingMarkers(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{
			name:    "exclamation marker",
			message: "feat!: remove old certificate api",
		},
		{
			name:    "exclamation marker with scope",
			message: "fix(proxy)!: change upgrade auth rules",
		},
		{
			name:    "breaking change footer",
			message: "refactor: rework storage keys\n\nBREAKING CHANGE: storage layout is incompatible with v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := ParseCommits([]string{tt.message})
			require.Len(t, entries, 1)
			assert.True(t, entries[0].Breaking)
		})
	}
}

func TestBuildGrouping(t *testing.T) {
	section := Build(mustTag(t, "v1.2.3"), testDate, []string{
		"feat(x): add y",
		"fix: correct z",
		"chore: bump version",
	})

	require.Len(t, section.Groups, 2)
	assert.Equal(t, "Features", section.Groups[0].Title)
	assert.Equal(t, "Bug Fixes", section.Groups[1].Title)

	rendered := section.Render()
	assert.Contains(t, rendered, "- **x:** add y")
	assert.Contains(t, rendered, "- correct z")
	// chore is not in the recognized heading set
	assert.NotContains(t, rendered, "bump version")
}

func TestBuildBreakingGroupLeads(t *testing.T) {
	section := Build(mustTag(t, "v2.0.0"), testDate, []string{
		"fix: small patch",
		"feat!: remove old api",
	})

	require.Len(t, section.Groups, 2)
	assert.Equal(t, "Breaking Changes", section.Groups[0].Title)
	require.Len(t, section.Groups[0].Entries, 1)
	assert.Equal(t, "remove old api", section.Groups[0].Entries[0].Description)
	assert.Equal(t, "Bug Fixes", section.Groups[1].Title)
}

func TestBuildBreakingFromUnrenderedType(t *testing.T) {
	// chore is excluded from the changelog, but a breaking chore must
	// still surface in the breaking group.
	section := Build(mustTag(t, "v2.0.0"), testDate, []string{
		"chore!: drop support for legacy manifests",
	})

	require.Len(t, section.Groups, 1)
	assert.Equal(t, "Breaking Changes", section.Groups[0].Title)
}

func TestRenderHeading(t *testing.T) {
	section := Build(mustTag(t, "v1.2.3"), testDate, []string{"feat: add thing"})
	assert.Contains(t, section.Render(), "## [1.2.3] - 2025-03-14")

	pre := Build(mustTag(t, "v2.0.0-rc.1"), testDate, []string{"feat: add thing"})
	assert.Contains(t, pre.Render(), "## [2.0.0-rc.1] - 2025-03-14 (pre-release)")
}

func TestRenderEmptySection(t *testing.T) {
	section := Build(mustTag(t, "v1.0.1"), testDate, []string{"chore: noise"})
	rendered := section.Render()
	assert.Contains(t, rendered, "No notable changes.")
}

func TestRenderOrderWithinGroup(t *testing.T) {
	section := Build(mustTag(t, "v1.3.0"), testDate, []string{
		"feat: first feature",
		"feat: second feature",
	})

	rendered := section.Render()
	first := strings.Index(rendered, "first feature")
	second := strings.Index(rendered, "second feature")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "commit order preserved within the group")
}
