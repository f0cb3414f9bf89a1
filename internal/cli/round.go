package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/jury-engine/internal/jury"
	"github.com/terra-clan/jury-engine/internal/models"
)

// ErrGateClosed is returned when the local gate refuses an action and --force was not given
var ErrGateClosed = errors.New("previous round is not completed")

func (a *app) roundCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "round",
		Short: "Add, activate, close and open rounds",
	}
	cmd.AddCommand(
		a.roundAddCommand(),
		a.roundActivateCommand(),
		a.roundCloseCommand("complete", "Mark a round as completed", "completed", Backend.CompleteRound),
		a.roundCloseCommand("cancel", "Cancel a round that has not completed", "cancelled", Backend.CancelRound),
		a.roundTasksCommand(),
		a.roundOpenCommand(),
	)
	return cmd
}

func (a *app) roundAddCommand() *cobra.Command {
	var (
		name     string
		method   string
		quorum   int
		jurors   []string
		deadline string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "add <campaign-id>",
		Short: "Append a paused round to a campaign",
		Long: `Append a round to a campaign. The round starts paused.

Rounds are normally added once the campaign's last round has completed;
use --force to add one anyway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			camp, err := a.loadCampaign(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !force && !jury.IsLastRoundCompleted(camp.Rounds) {
				return fmt.Errorf("cannot add a round to %s: %w", camp.Name, ErrGateClosed)
			}

			input := jury.RoundInput{
				Name:       name,
				VoteMethod: models.VoteMethod(method),
				Quorum:     quorum,
			}
			for _, j := range jurors {
				input.Jurors = append(input.Jurors, jury.JurorRecord{Name: j})
			}
			if deadline != "" {
				d, err := parseDeadline(deadline)
				if err != nil {
					return err
				}
				input.DeadlineDate = &d
			}

			svc := jury.NewCreationService(a.backend, a.bus, a.logger)
			if err := svc.Submit(cmd.Context(), camp, input); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Round added to %s\n", camp.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "round name (default \"Round N\")")
	cmd.Flags().StringVar(&method, "vote-method", "", "yesno, rating or ranking (default rating)")
	cmd.Flags().IntVar(&quorum, "quorum", 0, "jurors required per task (default 2)")
	cmd.Flags().StringSliceVar(&jurors, "juror", nil, "juror username, repeatable")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline, RFC 3339 or 2006-01-02T15:04:05")
	cmd.Flags().BoolVar(&force, "force", false, "add the round even if the last round is not completed")

	return cmd
}

func (a *app) roundActivateCommand() *cobra.Command {
	var (
		campaignID string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "activate <round-id>",
		Short: "Activate a paused round",
		Long: `Activate a round. A round may only become active once every round
created before it in the campaign has completed. The check runs locally
first; --force skips it and leaves the decision to the service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			camp, err := a.loadCampaign(cmd.Context(), campaignID)
			if err != nil {
				return err
			}
			round, ok := findRound(camp, args[0])
			if !ok {
				return fmt.Errorf("round %s is not part of campaign %s", args[0], camp.ID)
			}
			if !force && !jury.CanActivate(camp, round.ID) {
				return fmt.Errorf("cannot activate %s: %w", round.Name, ErrGateClosed)
			}

			if err := jury.NewLifecycleManager(a.backend, a.bus, a.logger).Activate(cmd.Context(), round); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Round %s activated\n", round.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&campaignID, "campaign", "", "campaign the round belongs to")
	cmd.Flags().BoolVar(&force, "force", false, "skip the local ordering check")
	cmd.MarkFlagRequired("campaign")

	return cmd
}

// roundAction is a Backend method that moves a round to a closing status
type roundAction func(b Backend, ctx context.Context, roundID string) (*models.Round, error)

func (a *app) roundCloseCommand(use, short, done string, action roundAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <round-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			round, err := action(a.backend, cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to %s round %s: %w", use, args[0], err)
			}
			a.logger.Debug("round closed", "round_id", round.ID, "status", round.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "Round %s %s\n", round.Name, done)
			return nil
		},
	}
}

func (a *app) roundTasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <round-id> <total>",
		Short: "Record how many tasks a round assigns",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.Atoi(args[1])
			if err != nil || total < 0 {
				return fmt.Errorf("invalid task count %q: want a non-negative integer", args[1])
			}
			round, err := a.backend.SetTasks(cmd.Context(), args[0], total)
			if err != nil {
				return fmt.Errorf("failed to set tasks for round %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Round %s has %d tasks\n", round.Name, round.TotalTasks)
			return nil
		},
	}
}

func (a *app) roundOpenCommand() *cobra.Command {
	var (
		campaignID string
		asJuror    bool
	)

	cmd := &cobra.Command{
		Use:   "open <round-id>",
		Short: "Print where to work on an active round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			camp, err := a.loadCampaign(cmd.Context(), campaignID)
			if err != nil {
				return err
			}
			round, ok := findRound(camp, args[0])
			if !ok {
				return fmt.Errorf("round %s is not part of campaign %s", args[0], camp.ID)
			}

			role := jury.RoleOrganizer
			if asJuror {
				role = jury.RoleJuror
			}

			intent, ok := jury.NewLifecycleManager(a.backend, a.bus, a.logger).RequestNavigation(round, role)
			if !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "round %s is not open\n", round.Name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", intent.Target, intent.RoundID)
			return nil
		},
	}

	cmd.Flags().StringVar(&campaignID, "campaign", "", "campaign the round belongs to")
	cmd.Flags().BoolVar(&asJuror, "juror", false, "open the juror view instead of the organizer view")
	cmd.MarkFlagRequired("campaign")

	return cmd
}

func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(models.DeadlineLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: use RFC 3339 or %s", s, models.DeadlineLayout)
	}
	return t, nil
}
