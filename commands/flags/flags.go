// Package flags provides the flags shared by the timelock-viewer commands.
//
// Command-specific flags should be defined locally in the command file.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func MustBool(b bool, _ error) bool { return b }

// Output adds the --out/-o flag for specifying the output file path. Output goes to stdout
// when it is empty. --output is accepted as an alias.
//
// Usage:
//
//	flags.Output(cmd)
//	// later in RunE:
//	outPath, _ := cmd.Flags().GetString("out")
func Output(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "", "Output file path (default stdout)")

	existingNormalize := cmd.Flags().GetNormalizeFunc()
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "output" {
			return pflag.NormalizedName("out")
		}
		if existingNormalize != nil {
			return existingNormalize(f, name)
		}

		return pflag.NormalizedName(name)
	})
}

// Format adds the --format/-f flag choosing the report format out of formats, the first
// being the default.
func Format(cmd *cobra.Command, formats ...string) {
	def := ""
	if len(formats) > 0 {
		def = formats[0]
	}
	cmd.Flags().StringP("format", "f", def, fmt.Sprintf("Report format (%s)", strings.Join(formats, ", ")))
}

// Address adds the --address/-a flag for the multisig or timelock to inspect. The configured
// multisig address is used when it is empty.
func Address(cmd *cobra.Command) {
	cmd.Flags().StringP("address", "a", "", "Address whose history is decoded (default from config)")
}
