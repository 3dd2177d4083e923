// Package changelog turns the Conventional-Commits history between two
// release tags into a rendered Keep-a-Changelog section. Parsing and
// rendering are split so each can be tested on its own: ParseCommits maps
// raw commit messages to entries, Build groups them, Render formats the
// section.
package changelog

import (
	"fmt"
	"strings"
	"time"

	conventionalcommits "github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"

	"github.com/ISTIFANUS-N/strellerminds-release/version"
)

// Entry is one changelog line derived from a parsed commit.
type Entry struct {
	Type        string
	Scope       string
	Description string
	Breaking    bool
}

// Group is an ordered set of entries rendered under one heading.
type Group struct {
	Type    string
	Title   string
	Entries []Entry
}

// Section is the changelog block for a single release. Derived once per
// release, immutable afterwards.
type Section struct {
	Version version.Tag
	Date    time.Time
	Groups  []Group
}

// breakingType is the synthetic group key for breaking changes. Commits
// with a "!" marker or a BREAKING CHANGE footer land here regardless of
// their base type.
const breakingType = "breaking"

// renderedTypes is the fixed set of commit types that appear in the
// rendered changelog, in render order. Commits of any other recognized
// type (chore, refactor, test, ci, ...) parse fine but are not rendered,
// unless they carry a breaking-change marker.
var renderedTypes = []struct {
	key   string
	title string
}{
	{breakingType, "Breaking Changes"},
	{"feat", "Features"},
	{"fix", "Bug Fixes"},
	{"perf", "Performance"},
	{"docs", "Documentation"},
}

// ParseCommits parses raw commit messages against the Conventional
// Commits grammar. Messages that do not follow the convention are
// silently excluded; they simply do not appear in the changelog.
// Multi-line bodies and footers are part of the parsed message, so a
// BREAKING CHANGE footer is honored.
func ParseCommits(messages []string) []Entry {
	machine := parser.NewMachine(
		conventionalcommits.WithTypes(conventionalcommits.TypesConventional),
	)

	var entries []Entry
	for _, msg := range messages {
		res, err := machine.Parse([]byte(msg))
		if err != nil {
			continue
		}
		cc, ok := res.(*conventionalcommits.ConventionalCommit)
		if !ok || !cc.Ok() {
			continue
		}

		entry := Entry{
			Type:        cc.Type,
			Description: cc.Description,
			Breaking:    cc.IsBreakingChange(),
		}
		if cc.Scope != nil {
			entry.Scope = *cc.Scope
		}
		entries = append(entries, entry)
	}
	return entries
}

// Build groups entries into a section for the given release. Breaking
// changes form their own leading group; the remaining entries are grouped
// by type in the fixed render order. Entry order within a group follows
// commit order.
func Build(tag version.Tag, date time.Time, messages []string) Section {
	entries := ParseCommits(messages)

	byType := make(map[string][]Entry)
	for _, e := range entries {
		key := e.Type
		if e.Breaking {
			key = breakingType
		}
		byType[key] = append(byType[key], e)
	}

	section := Section{Version: tag, Date: date}
	for _, rt := range renderedTypes {
		if group := byType[rt.key]; len(group) > 0 {
			section.Groups = append(section.Groups, Group{
				Type:    rt.key,
				Title:   rt.title,
				Entries: group,
			})
		}
	}
	return section
}

// Render formats the section in Keep-a-Changelog style. Pre-release tags
// are annotated in the heading. A release with no rendered entries gets
// an explicit placeholder so the release body is never empty.
func (s Section) Render() string {
	var b strings.Builder

	heading := fmt.Sprintf("## [%s] - %s", s.Version.Version(), s.Date.Format("2006-01-02"))
	if s.Version.IsPrerelease() {
		heading += " (pre-release)"
	}
	b.WriteString(heading + "\n")

	if len(s.Groups) == 0 {
		b.WriteString("\nNo notable changes.\n")
		return b.String()
	}

	for _, g := range s.Groups {
		fmt.Fprintf(&b, "\n### %s\n\n", g.Title)
		for _, e := range g.Entries {
			if e.Scope != "" {
				fmt.Fprintf(&b, "- **%s:** %s\n", e.Scope, e.Description)
			} else {
				fmt.Fprintf(&b, "- %s\n", e.Description)
			}
		}
	}
	return b.String()
}
