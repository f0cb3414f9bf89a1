package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terra-clan/jury-engine/internal/jury"
	"github.com/terra-clan/jury-engine/internal/models"
)

func (a *app) campaignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Create, inspect and rename campaigns",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty campaign",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.backend.CreateCampaign(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to create campaign: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created campaign %s (%s)\n", resp.ID, resp.Slug)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <campaign-id>",
			Short: "List a campaign's rounds in creation order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				camp, err := a.loadCampaign(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printCampaign(cmd.OutOrStdout(), camp)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <campaign-id> <name>",
			Short: "Rename a campaign",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				camp, err := a.loadCampaign(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				editor := jury.NewNameEditor(a.backend, a.bus, a.logger)
				editor.BeginEdit(camp)
				editor.SetBuffer(args[1])
				return editor.CommitEdit(cmd.Context(), camp)
			},
		},
	)

	return cmd
}

func printCampaign(out io.Writer, camp *models.Campaign) {
	fmt.Fprintf(out, "%s (%s)\n", camp.Name, camp.ID)
	if len(camp.Rounds) == 0 {
		fmt.Fprintln(out, "  no rounds")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tID\tNAME\tMETHOD\tQUORUM\tJURORS\tSTATUS\tACTIVATABLE")
	for i, r := range camp.Rounds {
		activatable := "-"
		if r.Status == models.RoundPaused {
			activatable = "no"
			if jury.CanActivate(camp, r.ID) {
				activatable = "yes"
			}
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			i+1, r.ID, r.Name, r.VoteMethod.Label(), r.Quorum, len(r.Jurors), r.Status, activatable)
	}
	tw.Flush()

	if jury.IsLastRoundCompleted(camp.Rounds) {
		fmt.Fprintln(out, "A new round can be added.")
	}
}
