package cli

import (
	"github.com/spf13/pflag"

	"github.com/tyemirov/htree/internal/output"
	"github.com/tyemirov/htree/internal/services/clipboard"
)

// registerCopyFlag adds --copy, which accepts the same literals as every other boolean flag.
func registerCopyFlag(flagSet *pflag.FlagSet, target *bool) {
	registerBooleanFlag(flagSet, target, copyFlagName, "", false, copyFlagDescription)
}

// copyRenderedOutput hands rendered text to copier without color escape sequences.
func copyRenderedOutput(copier clipboard.Copier, rendered string) error {
	if copier == nil {
		return clipboard.ErrUnavailable
	}
	return copier.Copy(output.StripANSI(rendered))
}
