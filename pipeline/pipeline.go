// Package pipeline orchestrates a single release run: parse the pushed
// tag, build and optimize every registered contract in parallel, package
// and checksum the bundle, render the changelog, and publish the release.
// A Pipeline value is the whole run context; nothing is ambient, so tests
// run many pipelines side by side without interference.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ISTIFANUS-N/strellerminds-release/bundle"
	"github.com/ISTIFANUS-N/strellerminds-release/changelog"
	"github.com/ISTIFANUS-N/strellerminds-release/publish"
	"github.com/ISTIFANUS-N/strellerminds-release/registry"
	"github.com/ISTIFANUS-N/strellerminds-release/toolchain"
	"github.com/ISTIFANUS-N/strellerminds-release/version"
)

// DefaultDistDir is where the bundle is materialized before publishing.
const DefaultDistDir = "dist"

// History provides the commit messages that feed the changelog.
// *history.Repo implements it.
type History interface {
	Changes(ctx context.Context, current version.Tag) ([]string, error)
}

// Options configures a pipeline run context.
type Options struct {
	// Registry enumerates the contract units to build. Required.
	Registry *registry.Registry

	// Compiler builds each unit to raw wasm. Required.
	Compiler toolchain.Compiler

	// Optimizer post-processes each raw artifact. Required.
	Optimizer toolchain.Optimizer

	// History supplies commit messages for the changelog. Required.
	History History

	// Host receives the finished release. Required.
	Host publish.Host

	// FS is the filesystem the dist directory is written to.
	// Defaults to the OS filesystem rooted at the current directory.
	FS billy.Filesystem

	// DistDir is the local bundle directory. Defaults to DefaultDistDir.
	DistDir string

	// Title names the release. Defaults to the tag string.
	Title func(version.Tag) string

	// Now stamps the changelog section. Defaults to time.Now.
	Now func() time.Time

	// Logger receives run progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks that all required collaborators are set.
func (o *Options) Validate() error {
	if o.Registry == nil {
		return errors.New("registry is required")
	}
	if o.Compiler == nil {
		return errors.New("compiler is required")
	}
	if o.Optimizer == nil {
		return errors.New("optimizer is required")
	}
	if o.History == nil {
		return errors.New("history provider is required")
	}
	if o.Host == nil {
		return errors.New("release host is required")
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.FS == nil {
		o.FS = osfs.New(".")
	}
	if o.DistDir == "" {
		o.DistDir = DefaultDistDir
	}
	if o.Title == nil {
		o.Title = func(t version.Tag) string { return t.String() }
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Pipeline is an immutable run context built from validated Options.
type Pipeline struct {
	opts Options
}

// New validates the options and returns a run-ready pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}
	opts.applyDefaults()
	return &Pipeline{opts: opts}, nil
}

// Result describes a successfully published release.
type Result struct {
	RunID   string
	Tag     version.Tag
	Bundle  *bundle.Bundle
	Section changelog.Section
}

// Run executes the full pipeline for the pushed tag string. The parsed
// tag gates everything; the artifact chain and the changelog run
// concurrently, and publishing is the single join point. Any stage
// failure aborts the run before a release record is created; outstanding
// per-contract work is cancelled on the first error.
func (p *Pipeline) Run(ctx context.Context, tagString string) (*Result, error) {
	tag, err := version.Parse(tagString)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := p.opts.Logger.With("component", "pipeline", "run_id", runID, "tag", tag.String())
	log.Info("starting release run",
		"contracts", len(p.opts.Registry.Contracts),
		"prerelease", tag.IsPrerelease())

	var (
		b       *bundle.Bundle
		section changelog.Section
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		b, err = p.buildBundle(gctx, log, tag)
		return err
	})
	g.Go(func() error {
		var err error
		section, err = p.buildChangelog(gctx, log, tag)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rel := publish.Release{
		Tag:        tag,
		Title:      p.opts.Title(tag),
		Body:       section.Render(),
		Prerelease: tag.IsPrerelease(),
		Assets:     releaseAssets(b),
	}

	log.Info("publishing release", "assets", len(rel.Assets))
	if err := p.opts.Host.Publish(ctx, rel); err != nil {
		if errors.Is(err, publish.ErrReleaseExists) {
			log.Info("release already exists, leaving it untouched")
		}
		return nil, err
	}

	log.Info("release published")
	return &Result{RunID: runID, Tag: tag, Bundle: b, Section: section}, nil
}

// buildBundle runs the per-contract build and optimize stages in
// parallel, then assembles the checksummed bundle and materializes it
// under the dist directory. Contracts are independent: each worker owns
// its artifact slot, so the stage needs no locking, and the first failure
// cancels the siblings.
func (p *Pipeline) buildBundle(ctx context.Context, log *slog.Logger, tag version.Tag) (*bundle.Bundle, error) {
	units := p.opts.Registry.Contracts
	artifacts := make([]bundle.Artifact, len(units))

	g, gctx := errgroup.WithContext(ctx)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			clog := log.With("contract", unit.Name)

			clog.Info("building contract")
			raw, err := p.opts.Compiler.Compile(gctx, unit)
			if err != nil {
				return err
			}

			clog.Info("optimizing contract", "raw_bytes", len(raw))
			optimized, err := p.opts.Optimizer.Optimize(gctx, unit.Name, raw)
			if err != nil {
				return err
			}

			clog.Info("contract ready", "optimized_bytes", len(optimized))
			artifacts[i] = bundle.Artifact{Contract: unit.Name, Raw: raw, Optimized: optimized}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b, err := bundle.Assemble(tag, artifacts)
	if err != nil {
		return nil, err
	}

	if err := b.Write(p.opts.FS, p.opts.DistDir); err != nil {
		return nil, err
	}
	log.Info("bundle written", "dir", p.opts.DistDir, "files", len(b.Files))
	return b, nil
}

func (p *Pipeline) buildChangelog(ctx context.Context, log *slog.Logger, tag version.Tag) (changelog.Section, error) {
	messages, err := p.opts.History.Changes(ctx, tag)
	if err != nil {
		return changelog.Section{}, fmt.Errorf("failed to collect commit history: %w", err)
	}

	section := changelog.Build(tag, p.opts.Now(), messages)
	log.Info("changelog rendered", "commits", len(messages), "groups", len(section.Groups))
	return section, nil
}

// releaseAssets lists every bundle file plus the checksum manifest.
func releaseAssets(b *bundle.Bundle) []publish.Asset {
	assets := make([]publish.Asset, 0, len(b.Files)+1)
	for _, f := range b.Files {
		assets = append(assets, publish.Asset{Name: f.Name, Data: f.Data})
	}
	assets = append(assets, publish.Asset{Name: bundle.ManifestName, Data: b.Manifest})
	return assets
}
