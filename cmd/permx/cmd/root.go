// Package cmd implements the permx CLI commands.
//
// The command structure follows standard Go CLI patterns with a root command
// that dispatches to subcommands (simulate, kinds, version). Each subcommand
// parses its own flags with pflag.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name  string
	Short string
	Long  string
	Usage string
	// Flags returns a fresh flag set for one invocation. Nil means the
	// command takes no flags.
	Flags func() *pflag.FlagSet
	Run   func(flags *pflag.FlagSet, args []string) error
}

var rootCmd = &Command{
	Name:  "permx",
	Short: "permx - permission request simulator",
	Long: `permx runs permissionx requests against a simulated device.

A scenario file declares the permissions to request, how the app reacts
when a permission needs explaining or a trip to settings, and how the
simulated user answers each prompt and dialog. The request runs through
the real platform channel layer.

Use "permx <command> --help" for more information about a command.`,
	Usage: "permx <command> [flags]",
}

// Commands registered with the CLI, in registration order.
var commands []*Command

// stdout and stderr are swapped by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands = append(commands, cmd)
}

func lookup(name string) *Command {
	for _, c := range commands {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return run(os.Args[1:])
}

func run(args []string) error {
	if len(args) == 0 {
		printHelp()
		return nil
	}

	switch args[0] {
	case "-h", "--help", "help":
		printHelp()
		return nil
	case "-v", "--version":
		printVersion()
		return nil
	}

	cmd := lookup(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "%s unknown command %q\n\n", errorStyle.Render("Error:"), args[0])
		printHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}

	flags := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
	if cmd.Flags != nil {
		flags = cmd.Flags()
	}
	flags.SetOutput(stderr)
	help := flags.BoolP("help", "h", false, "show help for "+cmd.Name)
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}
	if *help {
		printCommandHelp(cmd, flags)
		return nil
	}

	return cmd.Run(flags, flags.Args())
}

func printHelp() {
	fmt.Fprintln(stdout, rootCmd.Long)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, headingStyle.Render("Usage:"))
	fmt.Fprintf(stdout, "  %s\n", rootCmd.Usage)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, headingStyle.Render("Commands:"))
	for _, sub := range commands {
		fmt.Fprintf(stdout, "  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, headingStyle.Render("Flags:"))
	fmt.Fprintln(stdout, "  -h, --help           Show help for a command")
	fmt.Fprintln(stdout, "  -v, --version        Show version information")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, headingStyle.Render("Examples:"))
	fmt.Fprintln(stdout, "  permx simulate camera.yaml          Run a scenario")
	fmt.Fprintln(stdout, "  permx simulate --codec cbor a.yaml  Run it over the CBOR codec")
	fmt.Fprintln(stdout, "  permx kinds                         List special permission kinds")
}

func printCommandHelp(cmd *Command, flags *pflag.FlagSet) {
	fmt.Fprintln(stdout, cmd.Long)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, headingStyle.Render("Usage:"))
	fmt.Fprintf(stdout, "  %s\n", cmd.Usage)
	if usage := flags.FlagUsages(); usage != "" {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, headingStyle.Render("Flags:"))
		fmt.Fprint(stdout, usage)
	}
}

func printVersion() {
	fmt.Fprintf(stdout, "permx version %s (built %s)\n", Version, BuildTime)
}
