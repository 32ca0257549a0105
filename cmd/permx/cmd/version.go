package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
)

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Print the permx version and build time.",
		Usage: "permx version",
		Run: func(_ *pflag.FlagSet, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			printVersion()
			return nil
		},
	})
}
