package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/cmd/balance"
	"github/chapool/go-gasless/cmd/env"
	"github/chapool/go-gasless/cmd/keystore"
	"github/chapool/go-gasless/cmd/permit"
	"github/chapool/go-gasless/cmd/probe"
	"github/chapool/go-gasless/cmd/server"
	"github/chapool/go-gasless/cmd/transfer"
	"github/chapool/go-gasless/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "app",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

Gasless token transfers: EIP-2612 permits batched with transferFrom
and executed as sponsored ERC-4337 user operations.
Requires configuration through ENV.`, config.ModuleName),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	// attach the subcommands
	rootCmd.AddCommand(
		balance.New(),
		env.New(),
		keystore.New(),
		permit.New(),
		probe.New(),
		server.New(),
		transfer.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
