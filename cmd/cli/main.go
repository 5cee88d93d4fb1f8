package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/icon-project/btp2/common/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "unknown"
	build   = "unknown"
)

func NewVersionCommand(parentCmd *cobra.Command, parentVc *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(parentCmd.Use, "version", version, build)
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Println("go-ethereum", params.VersionWithMeta)
			}
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "Print library versions")
	parentCmd.AddCommand(cmd)
	return cmd
}

func main() {
	rootCmd, rootVc := cli.NewCommand(nil, nil, "evm-codec-cli", "Decode and encode EVM values with compiler output")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	cli.SetEnvKeyReplacer(rootVc, strings.NewReplacer(" ", "_", ".", "_", "-", "_"))
	NewVersionCommand(rootCmd, rootVc)

	// offline commands read compiler output directly
	NewSelectorCommand(rootCmd, rootVc)
	NewLayoutCommand(rootCmd, rootVc)
	NewDecodeCommand(rootCmd, rootVc)
	// online commands
	NewServerCommand(rootCmd, rootVc, version, build)
	NewApiCommand(rootCmd, rootVc)

	genMdCmd := cli.NewGenerateMarkdownCommand(rootCmd, rootVc)
	genMdCmd.Hidden = true

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}
}
