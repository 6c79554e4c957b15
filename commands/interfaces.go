package commands

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func newInterfacesCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List the registered contract interfaces and their function selectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterfaces(cmd, cfg)
		},
	}
}

// runInterfaces prints the registered interfaces followed by one line per selector.
func runInterfaces(cmd *cobra.Command, cfg Config) error {
	s, err := openSession(cmd, &cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.lggr.Sync() }()

	reg, err := s.registry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Interfaces:")
	for _, iface := range reg.Interfaces() {
		fmt.Fprintf(out, "  %s\n", iface)
	}

	methods := reg.Methods()
	selectors := slices.SortedFunc(maps.Keys(methods), func(a, b string) int {
		return cmp.Or(cmp.Compare(methods[a], methods[b]), cmp.Compare(a, b))
	})

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Selectors:")
	for _, sel := range selectors {
		fmt.Fprintf(out, "  %s  %s\n", sel, methods[sel])
	}

	return nil
}
