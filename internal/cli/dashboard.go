package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terra-clan/jury-engine/internal/jury"
	"github.com/terra-clan/jury-engine/internal/models"
)

func (a *app) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the rounds you organize and the campaigns you judge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := jury.NewDashboard(a.backend, a.logger).Load(cmd.Context())
			printDashboard(cmd.OutOrStdout(), view)
			return err
		},
	}
}

func printDashboard(out io.Writer, view *jury.DashboardView) {
	if view.User != nil {
		fmt.Fprintf(out, "Signed in as %s\n\n", view.User.Username)
	}

	if view.IsAdmin {
		fmt.Fprintln(out, "Organizer rounds:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range view.AdminRounds {
			writeRoundRow(tw, r, true)
		}
		tw.Flush()
		fmt.Fprintln(out)
	}

	if view.IsJuror {
		fmt.Fprintln(out, "Juror campaigns:")
		for _, rounds := range view.JurorCampaigns.Groups() {
			fmt.Fprintf(out, "  %s\n", rounds[0].Campaign.Name)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, r := range rounds {
				writeRoundRow(tw, r, false)
			}
			tw.Flush()
		}
	}

	if !view.IsAdmin && !view.IsJuror {
		fmt.Fprintln(out, "No rounds yet.")
	}
}

func writeRoundRow(w io.Writer, r models.Round, withCampaign bool) {
	if withCampaign {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.VoteMethod.Label(), r.Status, r.Campaign.Name)
		return
	}
	fmt.Fprintf(w, "    %s\t%s\t%s\t%s\n", r.ID, r.Name, r.VoteMethod.Label(), r.Status)
}
