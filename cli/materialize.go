package cli

import (
	"encoding/json"
	"os"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/dcontext"
	"github.com/voltpack/corepm/materialize"
	"github.com/voltpack/corepm/store"
)

var materializeFlags struct {
	src          string
	dest         string
	cacheRoot    string
	linkStrategy string
}

// materializeCmd is the §6 `materialize` subcommand, exposed for reuse
// by external commands: place a single already-extracted package (named
// by its store digest) at --dest, without touching a lockfile or a
// plan. It calls materialize.Materializer directly, the same component
// `install` uses internally.
var materializeCmd = &cobra.Command{
	Use:   "materialize --src DIGEST --dest PATH",
	Short: "`materialize` places one store package at a path",
	Long:  "`materialize` places one store package at a path",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(rootFlags.configPath)
		if err != nil {
			fatalf("materialize: %v", err)
		}
		configureLoggingFromConfig(cfg)

		if materializeFlags.src == "" || materializeFlags.dest == "" {
			fatalf("materialize: --src and --dest are required")
		}
		dgst, err := digest.Parse(materializeFlags.src)
		if err != nil {
			fatalf("materialize: invalid --src digest %q: %v", materializeFlags.src, err)
		}

		cacheRoot := materializeFlags.cacheRoot
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
			fatalf("materialize: open store at %s: %v", cacheRoot, err)
		}

		strategy := corepm.LinkStrategy(materializeFlags.linkStrategy)
		if strategy == "" {
			strategy = corepm.LinkAuto
		}
		if cfg != nil && !cmd.Flags().Changed("link-strategy") {
			strategy = cfg.Install.LinkStrategyPolicy()
		}

		m := materialize.New(s, strategy)
		placements := []corepm.Placement{
			{
				Path: materializeFlags.dest,
				Kind: corepm.PlacementReal,
				Desc: corepm.PackageDescriptor{Digest: dgst},
			},
		}
		if err := m.Place(ctx, placements); err != nil {
			fatalf("materialize: %v", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m.Stats()); err != nil {
			fatalf("materialize: encode stats: %v", err)
		}
	},
}

func init() {
	materializeCmd.Flags().StringVar(&materializeFlags.src, "src", "", "store package digest (required)")
	materializeCmd.Flags().StringVar(&materializeFlags.dest, "dest", "", "destination path (required)")
	materializeCmd.Flags().StringVar(&materializeFlags.cacheRoot, "cache-root", "", "content-addressed store root (defaults to the platform user cache dir)")
	materializeCmd.Flags().StringVar(&materializeFlags.linkStrategy, "link-strategy", "auto", "auto|clone|hardlink|copy")
}
