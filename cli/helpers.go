package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fam007e/securepass/vault"
)

// printTable renders entries as a table without secret values.
func printTable(w io.Writer, entries []vault.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tSERVICE\tUSERNAME\tTOTP\tRECOVERY")

	for _, e := range entries {
		totp := "-"
		if len(e.TotpSecret) > 0 {
			totp = "yes"
		}

		recovery := "-"
		if len(e.RecoveryCodes) > 0 {
			recovery = "yes"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Service, e.Username, totp, recovery)
	}

	_ = tw.Flush()
}

// parseEntryID parses a positional entry id argument.
func parseEntryID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", arg)
	}

	return id, nil
}
