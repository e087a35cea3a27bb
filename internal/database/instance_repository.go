package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// PostgresInstanceRepository stores SystemInstance definitions in Postgres.
type PostgresInstanceRepository struct {
	db *sql.DB
}

// NewPostgresInstanceRepository creates a new instance repository.
func NewPostgresInstanceRepository(db *sql.DB) *PostgresInstanceRepository {
	return &PostgresInstanceRepository{db: db}
}

const instanceColumns = `
	instance_id, system_name, display_name, base_url, is_active,
	auth_type, auth_config, ssl_config, rate_limit, tags,
	created_at, updated_at
`

// GetInstance retrieves an instance by id. Returns nil, nil when absent.
func (r *PostgresInstanceRepository) GetInstance(ctx context.Context, instanceID string) (*models.SystemInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM system_instances WHERE instance_id = $1`

	inst, err := scanInstance(r.db.QueryRowContext(ctx, query, instanceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", instanceID, err)
	}
	return inst, nil
}

// ListInstances retrieves all instances ordered by id.
func (r *PostgresInstanceRepository) ListInstances(ctx context.Context) ([]models.SystemInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM system_instances ORDER BY instance_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var instances []models.SystemInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// SaveInstance inserts or replaces an instance definition.
func (r *PostgresInstanceRepository) SaveInstance(ctx context.Context, inst models.SystemInstance) error {
	authConfig, err := json.Marshal(inst.AuthConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal auth_config: %w", err)
	}
	sslConfig, err := json.Marshal(inst.SSLConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal ssl_config: %w", err)
	}
	rateLimit, err := json.Marshal(inst.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to marshal rate_limit: %w", err)
	}

	query := `
		INSERT INTO system_instances (` + instanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (instance_id) DO UPDATE SET
			system_name = EXCLUDED.system_name,
			display_name = EXCLUDED.display_name,
			base_url = EXCLUDED.base_url,
			is_active = EXCLUDED.is_active,
			auth_type = EXCLUDED.auth_type,
			auth_config = EXCLUDED.auth_config,
			ssl_config = EXCLUDED.ssl_config,
			rate_limit = EXCLUDED.rate_limit,
			tags = EXCLUDED.tags,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	createdAt := inst.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = r.db.ExecContext(ctx, query,
		inst.InstanceID,
		inst.SystemName,
		inst.DisplayName,
		inst.BaseURL,
		inst.IsActive,
		string(inst.AuthType),
		authConfig,
		sslConfig,
		rateLimit,
		pq.Array(inst.Tags),
		createdAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save instance %s: %w", inst.InstanceID, err)
	}
	return nil
}

// DeleteInstance removes an instance by id.
func (r *PostgresInstanceRepository) DeleteInstance(ctx context.Context, instanceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM system_instances WHERE instance_id = $1`, instanceID)
	if err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", instanceID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*models.SystemInstance, error) {
	var inst models.SystemInstance
	var authType string
	var authConfig, sslConfig, rateLimit []byte

	err := row.Scan(
		&inst.InstanceID,
		&inst.SystemName,
		&inst.DisplayName,
		&inst.BaseURL,
		&inst.IsActive,
		&authType,
		&authConfig,
		&sslConfig,
		&rateLimit,
		pq.Array(&inst.Tags),
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.AuthType = models.AuthType(authType)
	if err := json.Unmarshal(authConfig, &inst.AuthConfig); err != nil {
		return nil, fmt.Errorf("failed to parse auth_config: %w", err)
	}
	if err := json.Unmarshal(sslConfig, &inst.SSLConfig); err != nil {
		return nil, fmt.Errorf("failed to parse ssl_config: %w", err)
	}
	if err := json.Unmarshal(rateLimit, &inst.RateLimit); err != nil {
		return nil, fmt.Errorf("failed to parse rate_limit: %w", err)
	}
	return &inst, nil
}
