package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [profile...]",
		Short: "List user profiles and their task tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := scenario.Select(args...)
			if err != nil {
				return err
			}
			writeProfiles(cmd.OutOrStdout(), profiles)
			return nil
		},
	}
}

func writeProfiles(w io.Writer, profiles []*scenario.Profile) {
	for i, p := range profiles {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (weight %d, wait %s)\n", p.Name, p.Weight, p.Wait)
		if p.Description != "" {
			fmt.Fprintf(w, "  %s\n", p.Description)
		}
		fmt.Fprintf(w, "  %-22s %6s  %-6s %-26s %s\n", "TASK", "WEIGHT", "METHOD", "PATH", "ACCEPT")
		fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 72))
		for _, t := range p.Tasks {
			fmt.Fprintf(w, "  %-22s %6d  %-6s %-26s %s\n", t.Name, t.Weight, t.Method, t.Path, t.Accept)
		}
	}
}
