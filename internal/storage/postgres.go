package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/jury-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Campaigns ---

// CreateCampaign creates a new campaign record
func (r *PostgresRepository) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	query := `
		INSERT INTO campaigns (id, name, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.CreatedAt); err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetCampaign retrieves a campaign with its rounds in creation order
func (r *PostgresRepository) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	if !validID(id) {
		return nil, nil
	}

	query := `SELECT id, name, created_at FROM campaigns WHERE id = $1`

	var c models.Campaign
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	rounds, err := r.ListRounds(ctx, RoundFilters{CampaignID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign rounds: %w", err)
	}
	c.Rounds = rounds

	return &c, nil
}

// UpdateCampaignName renames a campaign
func (r *PostgresRepository) UpdateCampaignName(ctx context.Context, id, name string) error {
	if !validID(id) {
		return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}

	result, err := r.pool.Exec(ctx, `UPDATE campaigns SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}

	return nil
}

// --- Rounds ---

const roundSelect = `
	SELECT r.id, r.name, r.vote_method, r.quorum, r.status, r.deadline_date, r.total_tasks, r.created_at,
		c.id, c.name,
		COALESCE((SELECT array_agg(j.username ORDER BY j.position) FROM round_jurors j WHERE j.round_id = r.id), '{}')
	FROM rounds r
	JOIN campaigns c ON c.id = r.campaign_id
`

// CreateRound appends a round to the end of a campaign
func (r *PostgresRepository) CreateRound(ctx context.Context, campaignID string, round *models.Round) error {
	if !validID(campaignID) {
		return fmt.Errorf("campaign %s: %w", campaignID, ErrNotFound)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes position assignment within the campaign
	var campaignName string
	err = tx.QueryRow(ctx, `SELECT name FROM campaigns WHERE id = $1 FOR UPDATE`, campaignID).Scan(&campaignName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("campaign %s: %w", campaignID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock campaign: %w", err)
	}

	query := `
		INSERT INTO rounds (id, campaign_id, position, name, vote_method, quorum, status, deadline_date, total_tasks, created_at)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position) + 1, 0) FROM rounds WHERE campaign_id = $2), $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.Exec(ctx, query,
		round.ID,
		campaignID,
		round.Name,
		string(round.VoteMethod),
		round.Quorum,
		string(round.Status),
		nullTime(round.DeadlineDate),
		round.TotalTasks,
		round.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}

	if len(round.Jurors) > 0 {
		jurorQuery := `
			INSERT INTO round_jurors (round_id, username, position)
			SELECT $1, j.username, j.ord
			FROM unnest($2::text[]) WITH ORDINALITY AS j(username, ord)
		`
		if _, err := tx.Exec(ctx, jurorQuery, round.ID, round.Jurors); err != nil {
			return fmt.Errorf("failed to assign jurors: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit round: %w", err)
	}

	round.Campaign = models.CampaignRef{ID: campaignID, Name: campaignName}
	return nil
}

// GetRound retrieves a round by ID
func (r *PostgresRepository) GetRound(ctx context.Context, id string) (*models.Round, error) {
	if !validID(id) {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, roundSelect+` WHERE r.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	rounds, err := scanRounds(rows)
	if err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return nil, nil // Not found
	}

	return &rounds[0], nil
}

// ListRounds returns rounds matching filters, grouped by campaign in creation order
func (r *PostgresRepository) ListRounds(ctx context.Context, filters RoundFilters) ([]models.Round, error) {
	query := roundSelect + ` WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.CampaignID != "" {
		if !validID(filters.CampaignID) {
			return []models.Round{}, nil
		}
		query += fmt.Sprintf(" AND r.campaign_id = $%d", argNum)
		args = append(args, filters.CampaignID)
		argNum++
	}

	if filters.Juror != "" {
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM round_jurors j WHERE j.round_id = r.id AND j.username = $%d)", argNum)
		args = append(args, filters.Juror)
		argNum++
	}

	if len(filters.Statuses) > 0 {
		statuses := make([]string, len(filters.Statuses))
		for i, s := range filters.Statuses {
			statuses[i] = string(s)
		}
		query += fmt.Sprintf(" AND r.status = ANY($%d)", argNum)
		args = append(args, statuses)
		argNum++
	}

	if filters.DeadlineBefore != nil {
		query += fmt.Sprintf(" AND r.deadline_date IS NOT NULL AND r.deadline_date < $%d", argNum)
		args = append(args, *filters.DeadlineBefore)
		argNum++
	}

	query += " ORDER BY c.created_at, c.id, r.position"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	return scanRounds(rows)
}

// UpdateRoundStatus sets the status of a round unconditionally
func (r *PostgresRepository) UpdateRoundStatus(ctx context.Context, id string, status models.RoundStatus) error {
	if !validID(id) {
		return fmt.Errorf("round %s: %w", id, ErrNotFound)
	}

	result, err := r.pool.Exec(ctx, `UPDATE rounds SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update round status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %s: %w", id, ErrNotFound)
	}

	return nil
}

// SetRoundTasks records how many tasks have been allocated to a round
func (r *PostgresRepository) SetRoundTasks(ctx context.Context, id string, total int) error {
	if !validID(id) {
		return fmt.Errorf("round %s: %w", id, ErrNotFound)
	}

	result, err := r.pool.Exec(ctx, `UPDATE rounds SET total_tasks = $2 WHERE id = $1`, id, total)
	if err != nil {
		return fmt.Errorf("failed to set round tasks: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %s: %w", id, ErrNotFound)
	}

	return nil
}

// ActivateRound locks every round of the campaign so concurrent activations
// serialize, then applies models.Campaign.CheckActivation.
func (r *PostgresRepository) ActivateRound(ctx context.Context, id string) (*models.Round, error) {
	if !validID(id) {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var campaignID string
	err = tx.QueryRow(ctx, `SELECT campaign_id FROM rounds WHERE id = $1`, id).Scan(&campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	rows, err := tx.Query(ctx, roundSelect+` WHERE r.campaign_id = $1 ORDER BY r.position FOR UPDATE OF r`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock campaign rounds: %w", err)
	}
	rounds, err := scanRounds(rows)
	if err != nil {
		return nil, err
	}

	campaign := &models.Campaign{ID: campaignID, Rounds: rounds}
	if err := campaign.CheckActivation(id); err != nil {
		return nil, err
	}

	before, _ := campaign.RoundsBefore(id)
	round := rounds[len(before)]
	if round.Status == models.RoundActive {
		return &round, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE rounds SET status = $2 WHERE id = $1`, id, string(models.RoundActive)); err != nil {
		return nil, fmt.Errorf("failed to activate round: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit activation: %w", err)
	}

	round.Status = models.RoundActive
	return &round, nil
}

func scanRounds(rows pgx.Rows) ([]models.Round, error) {
	defer rows.Close()

	rounds := make([]models.Round, 0)
	for rows.Next() {
		var round models.Round
		var voteMethod, status string
		var deadline sql.NullTime

		err := rows.Scan(
			&round.ID,
			&round.Name,
			&voteMethod,
			&round.Quorum,
			&status,
			&deadline,
			&round.TotalTasks,
			&round.CreatedAt,
			&round.Campaign.ID,
			&round.Campaign.Name,
			&round.Jurors,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}

		if round.VoteMethod, err = models.ParseVoteMethod(voteMethod); err != nil {
			return nil, fmt.Errorf("round %s: %w", round.ID, err)
		}
		if round.Status, err = models.ParseRoundStatus(status); err != nil {
			return nil, fmt.Errorf("round %s: %w", round.ID, err)
		}

		if deadline.Valid {
			d := deadline.Time.UTC()
			round.DeadlineDate = &d
		}

		rounds = append(rounds, round)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}

	return rounds, nil
}

// --- Users ---

// GetUserByApiKey retrieves a user by API key
func (r *PostgresRepository) GetUserByApiKey(ctx context.Context, apiKey string) (*models.User, error) {
	query := `
		SELECT id, username, api_key, is_organizer, created_at, last_used_at
		FROM users
		WHERE api_key = $1
	`

	var u models.User
	var lastUsedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&u.ID,
		&u.Username,
		&u.ApiKey,
		&u.IsOrganizer,
		&u.CreatedAt,
		&lastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if lastUsedAt.Valid {
		u.LastUsedAt = &lastUsedAt.Time
	}

	return &u, nil
}

// UpdateUserLastUsed updates the last_used_at timestamp for a user
func (r *PostgresRepository) UpdateUserLastUsed(ctx context.Context, apiKey string) error {
	query := `UPDATE users SET last_used_at = NOW() WHERE api_key = $1`

	if _, err := r.pool.Exec(ctx, query, apiKey); err != nil {
		return fmt.Errorf("failed to update user last_used_at: %w", err)
	}

	return nil
}

// UpsertOrganizer grants organizer rights to u.Username, creating the user with
// u.ID and u.ApiKey if needed. Existing users keep their ID and key; u is
// updated with the stored values.
func (r *PostgresRepository) UpsertOrganizer(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, username, api_key, is_organizer, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (username) DO UPDATE SET is_organizer = TRUE
		RETURNING id, api_key, created_at, last_used_at
	`

	var lastUsedAt sql.NullTime
	err := r.pool.QueryRow(ctx, query, u.ID, u.Username, u.ApiKey, u.CreatedAt).Scan(
		&u.ID,
		&u.ApiKey,
		&u.CreatedAt,
		&lastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert organizer: %w", err)
	}

	u.IsOrganizer = true
	if lastUsedAt.Valid {
		u.LastUsedAt = &lastUsedAt.Time
	}

	return nil
}

// Notify publishes payload on a notification channel
func (r *PostgresRepository) Notify(ctx context.Context, channel, payload string) error {
	if _, err := r.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, payload); err != nil {
		return fmt.Errorf("failed to notify %s: %w", channel, err)
	}
	return nil
}

// validID reports whether id can be compared with a UUID column.
// Anything else would make Postgres fail the whole statement.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Helper functions for nullable values

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
