package keystore

import (
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/util/command"
)

const (
	pathFlag string = "path"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("keystore",
		newCreate(),
		newAccounts(),
	)
}
