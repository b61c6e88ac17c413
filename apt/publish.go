package apt

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Request carries the already-validated parameters of one publish run.
// Callers (the CLI, CI glue) resolve defaults, environment variables and
// globs before building a Request; the pipeline itself never consults the
// environment.
type Request struct {
	// RepoRoot is the repository root directory. Created when absent.
	RepoRoot string

	// Packages are the .deb artifact paths to copy into the pool. May be
	// empty for a regeneration-only run over an existing pool.
	Packages []string

	// PackageName determines the pool subpath
	// pool/<component>/<first-letter>/<PackageName>.
	PackageName string

	Component     string
	Architectures []string

	// Distribution is the release channel being published to. Its Name
	// selects the dists/ subdirectory.
	Distribution Distribution

	// Signing identifies the key for InRelease and Release.gpg. When
	// Signing.Key is empty the signing stage is skipped and the run
	// publishes unsigned metadata.
	Signing SignRequest
}

// Publisher runs the publish pipeline: layout resolution, pool copy-in,
// per-architecture index generation, Release generation, signing. Stages
// communicate only through the filesystem, so an interrupted run can simply
// be re-run.
type Publisher struct {
	Logger *slog.Logger
}

// Publish executes one full publish of req. It fails fast: the first stage
// error aborts the run, and every generated artifact is written atomically,
// so the repository is never left straddling two states.
func (p *Publisher) Publish(req Request) error {
	// The passphrase must not outlive the run, whichever stage fails.
	defer wipe(req.Signing.Passphrase)

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		"distribution", req.Distribution.Name,
		"component", req.Component,
	)

	l := Layout{Root: req.RepoRoot}
	if err := l.Ensure(req.Distribution.Name, req.Component, req.PackageName, req.Architectures); err != nil {
		return err
	}

	for _, pkg := range req.Packages {
		poolPath, err := l.AddToPool(req.Component, req.PackageName, pkg)
		if err != nil {
			return err
		}
		logger.Info("staged package", "pool_path", poolPath)
	}

	archs := dedupe(req.Architectures)
	for _, arch := range archs {
		if err := BuildIndex(l, req.Distribution.Name, req.Component, arch); err != nil {
			return fmt.Errorf("indexing binary-%s: %w", arch, err)
		}
		logger.Info("index written", "architecture", arch)
	}

	// Hard ordering barrier: the Release manifest embeds the final index
	// checksums, and the signatures bind the final Release bytes.
	if err := WriteRelease(l, req.Distribution, []string{req.Component}, archs); err != nil {
		return err
	}
	logger.Info("release written", "path", filepath.ToSlash(filepath.Join("dists", req.Distribution.Name, "Release")))

	if req.Signing.Key == "" {
		logger.Warn("no signing key configured, publishing unsigned metadata")
		return nil
	}
	if err := SignRelease(l, req.Distribution.Name, req.Signing); err != nil {
		return err
	}
	logger.Info("release signed")

	// Publish the verification key next to the signed metadata, so clients
	// can fetch it from the same tree they add to their sources.
	pub, err := ExportPublicKey(req.Signing.Key, req.Signing.KeyID, true)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(req.RepoRoot, "public.asc"), pub); err != nil {
		return fmt.Errorf("%w: public.asc: %v", ErrIO, err)
	}
	logger.Info("public key exported", "path", "public.asc")
	return nil
}
