// Command debpress publishes .deb packages into a signed APT repository
// tree: pool layout, Packages indices, Release manifest, InRelease and
// Release.gpg signatures.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debpress/debpress/apt"
	"github.com/debpress/debpress/config"
	"github.com/debpress/debpress/deb"
)

// Environment variables of the signing adapter. The key and passphrase are
// passed through the environment so they never appear in the process
// argument list.
const (
	EnvSigningKey = "DEBPRESS_SIGNING_KEY"
	EnvPassphrase = "DEBPRESS_PASSPHRASE"
)

const defaultLogLevel = "info"

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar}))
	slog.SetDefault(logger)

	root := newRootCommand(logger, &levelVar)
	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger, levelVar *slog.LevelVar) *cobra.Command {
	logLevel := defaultLogLevel

	root := &cobra.Command{
		Use:           "debpress",
		Short:         "Publish .deb packages into a signed APT repository",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Log verbosity (debug, info, warning, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		levelVar.Set(level)
		return nil
	}

	root.AddCommand(
		newPublishCommand(logger),
		newPubkeyCommand(),
	)
	return root
}

func newPublishCommand(logger *slog.Logger) *cobra.Command {
	var (
		repoRoot     string
		distribution string
		component    string
		archs        []string
		configPath   string
		keyFile      string
		keyID        string
		skipSigning  bool

		origin      string
		label       string
		suite       string
		codename    string
		version     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "publish <deb-file-or-glob>...",
		Args:  cobra.MinimumNArgs(1),
		Short: "Copy .deb artifacts into the pool and regenerate the signed repository metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			packages, err := expandArtifacts(args)
			if err != nil {
				return err
			}

			dist := apt.Distribution{
				Name:        distribution,
				Origin:      origin,
				Label:       label,
				Suite:       suite,
				Version:     version,
				Codename:    codename,
				Description: description,
			}
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				applyConfig(cfg, cmd.Flags().Changed, &dist, &component, &archs)
			}
			if dist.Suite == "" {
				dist.Suite = dist.Name
			}

			// All artifacts of one run land in the same pool directory, so
			// they must belong to the same source package.
			name, err := commonPackageName(packages)
			if err != nil {
				return err
			}

			signing, err := resolveSigning(keyFile, keyID)
			if err != nil {
				return err
			}
			if signing.Key == "" && !skipSigning {
				return fmt.Errorf("no signing key: set %s, use --key-file, or pass --skip-signing explicitly", EnvSigningKey)
			}
			if skipSigning {
				signing = apt.SignRequest{}
			}

			publisher := &apt.Publisher{Logger: logger}
			return publisher.Publish(apt.Request{
				RepoRoot:      repoRoot,
				Packages:      packages,
				PackageName:   name,
				Component:     component,
				Architectures: archs,
				Distribution:  dist,
				Signing:       signing,
			})
		},
	}

	cmd.Flags().StringVar(&repoRoot, "repo", ".", "Repository root directory")
	cmd.Flags().StringVar(&distribution, "dist", "stable", "Distribution name under dists/")
	cmd.Flags().StringVar(&component, "component", "main", "Component name under pool/ and dists/<dist>/")
	cmd.Flags().StringSliceVar(&archs, "arch", []string{"amd64"}, "Architectures to index; repeat or comma-separate")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML or JSON repository configuration file")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "Path to the armored signing key (overridden by "+EnvSigningKey+")")
	cmd.Flags().StringVar(&keyID, "key-id", "", "Signing key selector: fingerprint, hex key ID or user ID substring")
	cmd.Flags().BoolVar(&skipSigning, "skip-signing", false, "Publish unsigned metadata (no InRelease, no Release.gpg)")
	cmd.Flags().StringVar(&origin, "origin", "", "Release Origin field")
	cmd.Flags().StringVar(&label, "label", "", "Release Label field")
	cmd.Flags().StringVar(&suite, "suite", "", "Release Suite field (defaults to the distribution name)")
	cmd.Flags().StringVar(&codename, "codename", "", "Release Codename field")
	cmd.Flags().StringVar(&version, "version", "", "Release Version field")
	cmd.Flags().StringVar(&description, "description", "", "Release Description field")

	return cmd
}

func newPubkeyCommand() *cobra.Command {
	var (
		keyFile string
		keyID   string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "pubkey",
		Short: "Export the armored public part of the signing key, for APT clients to trust",
		RunE: func(cmd *cobra.Command, args []string) error {
			signing, err := resolveSigning(keyFile, keyID)
			if err != nil {
				return err
			}
			if signing.Key == "" {
				return fmt.Errorf("no signing key: set %s or use --key-file", EnvSigningKey)
			}

			pub, err := apt.ExportPublicKey(signing.Key, signing.KeyID, true)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(pub)
				return err
			}
			return os.WriteFile(outPath, pub, 0644)
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "Path to the armored signing key (overridden by "+EnvSigningKey+")")
	cmd.Flags().StringVar(&keyID, "key-id", "", "Signing key selector: fingerprint, hex key ID or user ID substring")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the key to this file instead of stdout")

	return cmd
}

// expandArtifacts resolves the artifact arguments, treating each as a glob
// pattern. A pattern matching nothing is a hard failure rather than a silent
// no-op, and every resolved path must name an existing .deb file.
func expandArtifacts(args []string) ([]string, error) {
	var packages []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no file matches %q", arg)
		}
		packages = append(packages, matches...)
	}
	sort.Strings(packages)

	for _, p := range packages {
		if !strings.HasSuffix(p, ".deb") {
			return nil, fmt.Errorf("%s is not a .deb file", p)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
	}
	return packages, nil
}

// commonPackageName scans every artifact and returns the package name they
// all declare. Mixed names are rejected; each package gets its own pool
// directory and therefore its own publish run.
func commonPackageName(packages []string) (string, error) {
	name := ""
	for _, p := range packages {
		info, err := deb.Scan(p)
		if err != nil {
			return "", err
		}
		if name == "" {
			name = info.Package
			continue
		}
		if info.Package != name {
			return "", fmt.Errorf("artifacts belong to different packages (%s, %s): publish them in separate runs", name, info.Package)
		}
	}
	return name, nil
}

// resolveSigning assembles the signing material from the environment, falling
// back to the key file for the key itself. The passphrase is only ever read
// from the environment.
func resolveSigning(keyFile, keyID string) (apt.SignRequest, error) {
	req := apt.SignRequest{KeyID: keyID}
	if key := os.Getenv(EnvSigningKey); key != "" {
		req.Key = key
	} else if keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return apt.SignRequest{}, fmt.Errorf("reading key file: %w", err)
		}
		req.Key = string(data)
	}
	if pass := os.Getenv(EnvPassphrase); pass != "" {
		req.Passphrase = []byte(pass)
	}
	return req, nil
}

// applyConfig fills in the settings the command line left unset. Flags take
// precedence over the configuration file.
func applyConfig(cfg *config.Config, changed func(string) bool, dist *apt.Distribution, component *string, archs *[]string) {
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&dist.Origin, cfg.Distribution.Origin)
	fill(&dist.Label, cfg.Distribution.Label)
	fill(&dist.Suite, cfg.Distribution.Suite)
	fill(&dist.Version, cfg.Distribution.Version)
	fill(&dist.Codename, cfg.Distribution.Codename)
	fill(&dist.Description, cfg.Distribution.Description)
	dist.ValidUntil = cfg.Distribution.ValidUntil
	dist.NotAutomatic = cfg.Distribution.NotAutomatic
	dist.ButAutomaticUpgrades = cfg.Distribution.ButAutomaticUpgrades
	dist.AcquireByHash = cfg.Distribution.AcquireByHash
	if cfg.Distribution.Name != "" && !changed("dist") {
		dist.Name = cfg.Distribution.Name
	}
	if cfg.Component != "" && !changed("component") {
		*component = cfg.Component
	}
	if len(cfg.Architectures) > 0 && !changed("arch") {
		*archs = cfg.Architectures
	}
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
