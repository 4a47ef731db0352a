// Package cli implements the §6 external interface: the pinned,
// deliberately thin `install` and `materialize` subcommands. Per
// spec.md §1's Non-goals, the multi-command CLI surface and its
// argument parsing are out of scope as a product concern; this package
// exists only to pin that one boundary, not to grow into one.
//
// It follows the teacher's own registry/pruner command-package split:
// a plain package exposing a `*cobra.Command` (here, RootCmd) that a
// thin cmd/<name>/main.go calls Execute() on, the same shape as
// registry.RootCmd and pruner.Cmd.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voltpack/corepm/internal/dcontext"
)

// RootCmd is the main command for the `corepm` binary.
var RootCmd = &cobra.Command{
	Use:   "corepm",
	Short: "`corepm` replays a lockfile into a dependency tree",
	Long:  "`corepm` replays a lockfile into a dependency tree",
	Run: func(cmd *cobra.Command, args []string) {
		// nolint:errcheck
		cmd.Usage()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "optional YAML configuration file (§5); flags always override it")
	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(materializeCmd)
}

var rootFlags struct {
	configPath string
}

// configureLogging mirrors the teacher's registry.configureLogging:
// a text formatter by default, stamped with RFC3339Nano timestamps,
// with SetDefaultLogger so every dcontext.GetLogger call downstream
// picks it up without threading a logger through every constructor.
func configureLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano})
	dcontext.SetDefaultLogger(dcontext.GetLogger(dcontext.Background()))
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
