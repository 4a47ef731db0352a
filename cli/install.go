package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/dcontext"
	"github.com/voltpack/corepm/pipeline"
	"github.com/voltpack/corepm/store"
)

var installFlags struct {
	projectRoot  string
	cacheRoot    string
	lockfilePath string
	linkStrategy string
	verify       string
	scripts      string
	concurrency  int
}

// installCmd is the §6 `install` subcommand: replay the lockfile into
// the project tree and print the resulting Report as JSON. It builds a
// pipeline.Options and calls pipeline.Pipeline.Run directly, nothing
// more — no interactive output, no analysis, no version resolution.
var installCmd = &cobra.Command{
	Use:   "install --project-root PATH",
	Short: "`install` replays a lockfile into node_modules",
	Long:  "`install` replays a lockfile into node_modules",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(rootFlags.configPath)
		if err != nil {
			fatalf("install: %v", err)
		}
		configureLoggingFromConfig(cfg)

		if installFlags.projectRoot == "" {
			fatalf("install: --project-root is required")
		}

		opts := pipeline.Options{
			ProjectRoot:      installFlags.projectRoot,
			LockfilePath:     installFlags.lockfilePath,
			Verify:           corepm.VerifyPolicy(installFlags.verify),
			Strategy:         corepm.LinkStrategy(installFlags.linkStrategy),
			FetchConcurrency: installFlags.concurrency,
		}
		if cfg != nil {
			if !cmd.Flags().Changed("verify") {
				opts.Verify = cfg.Install.VerifyPolicy()
			}
			if !cmd.Flags().Changed("link-strategy") {
				opts.Strategy = cfg.Install.LinkStrategyPolicy()
			}
			if !cmd.Flags().Changed("concurrency") && cfg.Install.Concurrency.Network != 0 {
				opts.FetchConcurrency = cfg.Install.Concurrency.Network
			}
		}
		if opts.Verify == "" {
			opts.Verify = corepm.VerifyRequired
		}
		if opts.Strategy == "" {
			opts.Strategy = corepm.LinkAuto
		}

		cacheRoot := installFlags.cacheRoot
		if cacheRoot == "" {
			cacheRoot = defaultCacheRoot()
		}

		ctx := dcontext.Background()
		var storeOpts []store.Option
		if params, name, ok := storeOptions(cfg); ok {
			storeOpts = append(storeOpts, store.WithDriver(name, params))
		}
		s, err := store.New(ctx, cacheRoot, storeOpts...)
		if err != nil {
			fatalf("install: open store at %s: %v", cacheRoot, err)
		}

		p := pipeline.New(s, opts)
		report, runErr := p.Run(ctx, opts)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fatalf("install: encode report: %v", err)
		}
		if runErr != nil {
			os.Exit(1)
		}
	},
}

func init() {
	installCmd.Flags().StringVar(&installFlags.projectRoot, "project-root", "", "project root to install into (required)")
	installCmd.Flags().StringVar(&installFlags.cacheRoot, "cache-root", "", "content-addressed store root (defaults to the platform user cache dir)")
	installCmd.Flags().StringVar(&installFlags.lockfilePath, "lockfile", "", "lockfile path (defaults to <project-root>/corepm-lock.yaml)")
	installCmd.Flags().StringVar(&installFlags.linkStrategy, "link-strategy", "auto", "auto|clone|hardlink|copy")
	installCmd.Flags().StringVar(&installFlags.verify, "verify", "required", "required|if-present|skip")
	installCmd.Flags().StringVar(&installFlags.scripts, "scripts", "off", "off|rebuild (scripts are never run by corepm itself; this only records policy for an external rebuild collaborator)")
	installCmd.Flags().IntVar(&installFlags.concurrency, "concurrency", 0, "fetch concurrency (0 means the built-in default)")
}

func defaultCacheRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".corepm-cache"
	}
	return dir + "/corepm"
}
