package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// PostgresWidgetRepository stores Widget definitions in Postgres.
type PostgresWidgetRepository struct {
	db *sql.DB
}

// NewPostgresWidgetRepository creates a new widget repository.
func NewPostgresWidgetRepository(db *sql.DB) *PostgresWidgetRepository {
	return &PostgresWidgetRepository{db: db}
}

const widgetColumns = `
	id, name, type, system_name, instance_id,
	query_config, visual_config, is_active, created_at, updated_at
`

// GetWidget retrieves a widget by id. Returns nil, nil when absent.
func (r *PostgresWidgetRepository) GetWidget(ctx context.Context, id string) (*models.Widget, error) {
	query := `SELECT ` + widgetColumns + ` FROM widgets WHERE id = $1`

	w, err := scanWidget(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get widget %s: %w", id, err)
	}
	return w, nil
}

// ListWidgets retrieves all widgets ordered by name.
func (r *PostgresWidgetRepository) ListWidgets(ctx context.Context) ([]models.Widget, error) {
	return r.list(ctx, `SELECT `+widgetColumns+` FROM widgets ORDER BY name`)
}

// ListActiveWidgets retrieves widgets with is_active=true.
func (r *PostgresWidgetRepository) ListActiveWidgets(ctx context.Context) ([]models.Widget, error) {
	return r.list(ctx, `SELECT `+widgetColumns+` FROM widgets WHERE is_active = true ORDER BY name`)
}

func (r *PostgresWidgetRepository) list(ctx context.Context, query string) ([]models.Widget, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query widgets: %w", err)
	}
	defer rows.Close()

	var widgets []models.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan widget: %w", err)
		}
		widgets = append(widgets, *w)
	}
	return widgets, rows.Err()
}

// SaveWidget inserts or replaces a widget definition.
func (r *PostgresWidgetRepository) SaveWidget(ctx context.Context, w models.Widget) error {
	queryConfig, err := json.Marshal(w.QueryConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal query_config: %w", err)
	}

	visualConfig := []byte(w.VisualConfig)
	if len(visualConfig) == 0 {
		visualConfig = []byte("{}")
	}

	query := `
		INSERT INTO widgets (` + widgetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			system_name = EXCLUDED.system_name,
			instance_id = EXCLUDED.instance_id,
			query_config = EXCLUDED.query_config,
			visual_config = EXCLUDED.visual_config,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = r.db.ExecContext(ctx, query,
		w.ID,
		w.Name,
		string(w.Type),
		w.SystemName,
		w.InstanceID,
		queryConfig,
		visualConfig,
		w.IsActive,
		createdAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save widget %s: %w", w.ID, err)
	}
	return nil
}

// DeleteWidget removes a widget by id.
func (r *PostgresWidgetRepository) DeleteWidget(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM widgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete widget %s: %w", id, err)
	}
	return nil
}

// CountByInstance reports how many widgets reference the instance.
func (r *PostgresWidgetRepository) CountByInstance(ctx context.Context, instanceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM widgets WHERE instance_id = $1`, instanceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count widgets for instance %s: %w", instanceID, err)
	}
	return count, nil
}

func scanWidget(row rowScanner) (*models.Widget, error) {
	var w models.Widget
	var widgetType string
	var queryConfig, visualConfig []byte

	err := row.Scan(
		&w.ID,
		&w.Name,
		&widgetType,
		&w.SystemName,
		&w.InstanceID,
		&queryConfig,
		&visualConfig,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Type = models.WidgetType(widgetType)
	if err := json.Unmarshal(queryConfig, &w.QueryConfig); err != nil {
		return nil, fmt.Errorf("failed to parse query_config: %w", err)
	}
	w.VisualConfig = json.RawMessage(visualConfig)
	return &w, nil
}
