// Command strellerminds-release runs the tag-triggered release pipeline
// for the StrellerMinds smart contracts: build each contract to wasm,
// optimize, package and checksum the bundle, render the changelog, and
// publish the release.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/pflag"

	"github.com/ISTIFANUS-N/strellerminds-release/config"
	"github.com/ISTIFANUS-N/strellerminds-release/history"
	"github.com/ISTIFANUS-N/strellerminds-release/logging"
	"github.com/ISTIFANUS-N/strellerminds-release/pipeline"
	"github.com/ISTIFANUS-N/strellerminds-release/publish"
	"github.com/ISTIFANUS-N/strellerminds-release/registry"
	"github.com/ISTIFANUS-N/strellerminds-release/toolchain"
)

const (
	exitFailure  = 1
	exitConflict = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = pflag.String("config", "release.yaml", "pipeline configuration file")
		tag        = pflag.String("tag", "", "release tag to publish (e.g. v1.2.3)")
		dryRun     = pflag.Bool("dry-run", false, "publish into a local directory instead of the hosting service")
	)
	pflag.Parse()

	if *tag == "" {
		fmt.Fprintln(os.Stderr, "--tag is required")
		pflag.Usage()
		return exitFailure
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Load(filepath.Join(cfg.Repo, cfg.Registry))
	if err != nil {
		log.Error("failed to load contract registry", "error", err)
		return exitFailure
	}

	repo, err := history.Open(cfg.Repo)
	if err != nil {
		log.Error("failed to open contracts repository", "error", err)
		return exitFailure
	}

	compiler := toolchain.NewCargoCompiler(cfg.Repo)
	if cfg.Toolchain.Cargo != "" {
		compiler.Program = cfg.Toolchain.Cargo
	}
	if cfg.Toolchain.Target != "" {
		compiler.Target = cfg.Toolchain.Target
	}
	if cfg.Toolchain.BuildTimeout > 0 {
		compiler.Timeout = cfg.Toolchain.BuildTimeout.Std()
	}

	optimizer := toolchain.NewWasmOptOptimizer()
	if cfg.Toolchain.WasmOpt != "" {
		optimizer.Program = cfg.Toolchain.WasmOpt
	}
	if len(cfg.Toolchain.WasmOptArgs) > 0 {
		optimizer.Args = cfg.Toolchain.WasmOptArgs
	}
	if cfg.Toolchain.OptimizeTimeout > 0 {
		optimizer.Timeout = cfg.Toolchain.OptimizeTimeout.Std()
	}

	var host publish.Host
	if *dryRun {
		host = publish.NewDirHost(osfs.New(cfg.Repo), "releases")
		log.Info("dry run: publishing to local directory", "dir", filepath.Join(cfg.Repo, "releases"))
	} else {
		if err := cfg.ValidateRelease(); err != nil {
			log.Error("invalid configuration", "error", err)
			return exitFailure
		}
		var opts []publish.GitHubOption
		if cfg.Release.BaseURL != "" {
			opts = append(opts, publish.WithBaseURL(cfg.Release.BaseURL))
		}
		host = publish.NewGitHubHost(cfg.Release.Owner, cfg.Release.Repo, cfg.Token(), opts...)
	}

	p, err := pipeline.New(pipeline.Options{
		Registry:  reg,
		Compiler:  compiler,
		Optimizer: optimizer,
		History:   repo,
		Host:      host,
		FS:        osfs.New(cfg.Repo),
		DistDir:   cfg.Dist,
		Logger:    log,
	})
	if err != nil {
		log.Error("failed to assemble pipeline", "error", err)
		return exitFailure
	}

	result, err := p.Run(ctx, *tag)
	if err != nil {
		if errors.Is(err, publish.ErrReleaseExists) {
			// Informational: the release was published before and stays
			// untouched. Distinct exit code so automation can tell it
			// apart from a defect.
			log.Info("nothing to do", "reason", err)
			return exitConflict
		}
		log.Error("release run failed", "error", err)
		return exitFailure
	}

	log.Info("release complete",
		"tag", result.Tag.String(),
		"artifacts", len(result.Bundle.Files),
		"run_id", result.RunID)
	return 0
}
