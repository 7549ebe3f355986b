// camrollctl queries and edits a photo library from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/camroll"
	"github.com/tstromberg/camroll/pkg/setup"
)

var (
	configPath string
	libDir     string
	dataDir    string
	yes        bool
)

var rootCmd = &cobra.Command{
	Use:           "camrollctl",
	Short:         "Query and edit a camroll photo library",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Location of TOML config file")
	rootCmd.PersistentFlags().StringVar(&libDir, "library", "", "Location of photo library directory")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Location of index directory")
	rootCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "approve without asking")

	fs := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		klog.Exitf("%v", err)
	}
}

// open wires the library named by the global flags.
func open(cmd *cobra.Command) (*setup.Env, error) {
	c, err := camroll.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if libDir != "" {
		c.LibraryDir = libDir
	}
	if dataDir != "" {
		c.DataDir = dataDir
	}
	if yes {
		c.AutoApprove = true
	}
	c.SetDefaults()
	return setup.Open(cmd.Context(), c)
}

func printJSON(v any) error {
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
