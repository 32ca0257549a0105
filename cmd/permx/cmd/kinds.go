package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/go-drift/permissionx/pkg/permissionx"
)

func init() {
	RegisterCommand(&Command{
		Name:  "kinds",
		Short: "List special permission kinds",
		Long: `List the special permission kinds a request can declare.

Special permissions cannot be granted from the OS prompt. Each one is
granted from its own settings screen. Kinds run after the normal
permissions, in the order listed. Scenario files may name a kind by its
name or by its permission identifier.`,
		Usage: "permx kinds",
		Run:   runKinds,
	})
}

func runKinds(_ *pflag.FlagSet, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	fmt.Fprint(stdout, kindsTable())
	return nil
}

func kindsTable() string {
	cols := []lipgloss.Style{
		lipgloss.NewStyle().Width(26),
		lipgloss.NewStyle().Width(46),
		lipgloss.NewStyle().Width(16),
		lipgloss.NewStyle(),
	}
	row := func(style lipgloss.Style, cells ...string) string {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = cols[i].Inherit(style).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...) + "\n"
	}

	out := row(headingStyle, "KIND", "PERMISSION", "SETTINGS", "MIN SDK")
	for _, kind := range permissionx.SpecialKinds() {
		minSDK := "-"
		if v := kind.MinSDK(); v > 0 {
			minSDK = strconv.Itoa(v)
		}
		out += row(lipgloss.NewStyle(), kind.String(), kind.Permission(), kind.SettingsTarget().String(), minSDK)
	}
	return out
}
