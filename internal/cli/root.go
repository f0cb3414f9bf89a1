// Package cli implements juryctl, the command line front end of the lifecycle
// core. Commands drive internal/jury components against the jury-engine API
// and print the events those components publish.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/terra-clan/jury-engine/internal/config"
	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/jury"
	"github.com/terra-clan/jury-engine/internal/models"
	"github.com/terra-clan/jury-engine/internal/notify"
)

// Backend is what juryctl needs from the service. pkg/client.Client implements it.
type Backend interface {
	jury.Backend
	CreateCampaign(ctx context.Context, name string) (*models.CampaignResponse, error)
	GetCampaign(ctx context.Context, id string) (*models.CampaignResponse, error)
	CompleteRound(ctx context.Context, roundID string) (*models.Round, error)
	CancelRound(ctx context.Context, roundID string) (*models.Round, error)
	SetTasks(ctx context.Context, roundID string, total int) (*models.Round, error)
	Health(ctx context.Context) error
	Watch(ctx context.Context, fn func(notify.Message)) error
}

// BackendFactory builds a Backend from the resolved client configuration
type BackendFactory func(cfg *config.ClientConfig) Backend

type app struct {
	newBackend BackendFactory

	apiURL  string
	apiKey  string
	verbose bool

	logger  *slog.Logger
	bus     *events.Bus
	backend Backend
}

// NewRootCommand builds the juryctl command tree
func NewRootCommand(newBackend BackendFactory) *cobra.Command {
	a := &app{newBackend: newBackend}

	root := &cobra.Command{
		Use:   "juryctl",
		Short: "Manage jury campaigns and rounds",
		Long: `juryctl talks to a jury-engine service. It creates campaigns and rounds,
activates rounds in order, renames campaigns, grants organizer rights and
follows lifecycle events as they happen.

The service address and API key come from JURY_API_URL and JURY_API_KEY,
or from the --api-url and --api-key flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "jury-engine base URL (overrides JURY_API_URL)")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "API key (overrides JURY_API_KEY)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.dashboardCommand(),
		a.campaignCommand(),
		a.roundCommand(),
		a.organizerCommand(),
		a.watchCommand(),
		a.healthCommand(),
	)

	return root
}

// setup resolves configuration, logging and the event bus before any command runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load client config: %w", err)
	}
	if a.apiURL != "" {
		cfg.BaseURL = a.apiURL
	}
	if a.apiKey != "" {
		cfg.APIKey = a.apiKey
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a.bus = events.NewBus(a.logger)
	a.subscribe(cmd.ErrOrStderr())

	a.backend = a.newBackend(cfg)
	return nil
}

// subscribe prints user notifications and traces the other events
func (a *app) subscribe(out io.Writer) {
	a.bus.Subscribe(events.TypeNotification, func(e events.Event) {
		n := e.(events.Notification)
		switch {
		case n.Level == events.LevelSuccess:
			fmt.Fprintf(out, "ok: %s\n", n.Message)
		case n.Detail != "":
			fmt.Fprintf(out, "error: %s: %s\n", n.Message, n.Detail)
		default:
			fmt.Fprintf(out, "error: %s\n", n.Message)
		}
	})

	a.bus.Subscribe(events.TypeStateInvalidated, func(e events.Event) {
		inv := e.(events.StateInvalidated)
		a.logger.Debug("state invalidated", "scope", inv.Scope, "id", inv.ID)
	})

	a.bus.Subscribe(events.TypeBusyChanged, func(e events.Event) {
		b := e.(events.BusyChanged)
		a.logger.Debug("busy", "action", b.Action, "busy", b.Busy)
	})
}

// loadCampaign fetches a campaign with its rounds in creation order
func (a *app) loadCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	resp, err := a.backend.GetCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", id, err)
	}
	camp := resp.Campaign
	for i := range camp.Rounds {
		if camp.Rounds[i].Campaign.ID == "" {
			camp.Rounds[i].Campaign = camp.Ref()
		}
	}
	return &camp, nil
}

func findRound(camp *models.Campaign, roundID string) (models.Round, bool) {
	for _, r := range camp.Rounds {
		if r.ID == roundID {
			return r, true
		}
	}
	return models.Round{}, false
}
