package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"water-savings-platform/internal/models"
	"water-savings-platform/pkg/database"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// LeadRepository provides data access for leads and their simulations
type LeadRepository interface {
	// Save stores the lead and its simulation atomically
	Save(ctx context.Context, lead *models.Lead, sim *models.Simulation) error
	Get(ctx context.Context, id uuid.UUID) (*models.LeadRecord, error)
	List(ctx context.Context, filter LeadFilter) ([]*models.LeadSummary, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Statistics aggregates leads and their simulations per city
	Statistics(ctx context.Context, filter LeadFilter) ([]*models.CityLeadStatistics, error)
}

// LeadFilter defines filters for listing leads
type LeadFilter struct {
	CityID       *int64
	CreatedFrom  *time.Time
	CreatedUntil *time.Time
	Limit        int
	Offset       int
}

const leadColumns = `l.id, l.name, l.email, l.phone, l.company, l.role, l.city_id,
		       l.consent, l.source, l.created_at, COALESCE(c.name, '') AS city_name`

type leadRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) LeadRepository {
	return &leadRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Save assigns the lead id and creation time when unset, then inserts both rows in one transaction
func (r *leadRepository) Save(ctx context.Context, lead *models.Lead, sim *models.Simulation) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithTx(ctx, "save_lead", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leads (id, name, email, phone, company, role, city_id, consent, source, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			lead.ID,
			lead.Name,
			lead.Email,
			lead.Phone,
			lead.Company,
			lead.Role,
			lead.CityID,
			lead.Consent,
			lead.Source,
			lead.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert lead: %w", err)
		}

		if sim == nil {
			return nil
		}
		sim.LeadID = lead.ID
		sim.CreatedAt = lead.CreatedAt

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO simulations (
				lead_id, city_id, input, tariffs, result,
				modules, yearly_difference_liters, annual_savings_currency,
				net_annual_savings, pays_back, payback_years, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`,
			sim.LeadID,
			sim.CityID,
			sim.Input,
			sim.Tariffs,
			sim.Result,
			sim.Modules,
			sim.YearlyDifferenceLiters,
			sim.AnnualSavingsCurrency,
			sim.NetAnnualSavings,
			sim.PaysBack,
			sim.PaybackYears,
			sim.CreatedAt,
		).Scan(&sim.ID)
		if err != nil {
			return fmt.Errorf("failed to insert simulation: %w", err)
		}

		return nil
	})
	if err != nil {
		if conflict := conflictFrom("lead", err); conflict != nil {
			return conflict
		}
		return err
	}

	r.metrics.LeadsCreatedTotal.WithLabelValues(fmt.Sprint(lead.CityID)).Inc()
	r.logger.Debug(ctx, "[REPO_SAVE_LEAD] Lead stored", logging.Fields{
		"lead_id": lead.ID.String(),
		"city_id": lead.CityID,
	})

	return nil
}

// Get retrieves a lead with its city name and simulation
func (r *leadRepository) Get(ctx context.Context, id uuid.UUID) (*models.LeadRecord, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads l
		LEFT JOIN cities c ON c.id = l.city_id
		WHERE l.id = $1
	`

	var row struct {
		models.Lead
		CityName string `db:"city_name"`
	}
	err := r.db.GetContext(ctx, "get_lead", &row, query, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "lead", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	record := &models.LeadRecord{Lead: row.Lead, CityName: row.CityName}

	simQuery := `
		SELECT id, lead_id, city_id, input, tariffs, result,
		       modules, yearly_difference_liters, annual_savings_currency,
		       net_annual_savings, pays_back, payback_years, created_at
		FROM simulations
		WHERE lead_id = $1
	`
	var sim models.Simulation
	err = r.db.GetContext(ctx, "get_lead_simulation", &sim, simQuery, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// stored without a simulation
	case err != nil:
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	default:
		record.Simulation = &sim
	}

	return record, nil
}

// List retrieves lead summaries with filtering and pagination, newest first
func (r *leadRepository) List(ctx context.Context, filter LeadFilter) ([]*models.LeadSummary, int, error) {
	query := `
		SELECT ` + leadColumns + `,
		       s.modules, s.yearly_difference_liters, s.annual_savings_currency, s.pays_back, s.payback_years
		FROM leads l
		LEFT JOIN cities c ON c.id = l.city_id
		LEFT JOIN simulations s ON s.lead_id = l.id
	`
	where, args := leadWhere(filter)
	query += where
	argNum := len(args) + 1

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_leads", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	query += " ORDER BY l.created_at DESC, l.id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	leads := []*models.LeadSummary{}
	if err := r.db.SelectContext(ctx, "list_leads", &leads, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}

	return leads, totalCount, nil
}

// Delete removes a lead; its simulation goes with it
func (r *leadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "delete_lead", `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if rows == 0 {
		return &NotFoundError{Resource: "lead", ID: id.String()}
	}

	r.logger.Info(ctx, "[REPO_DELETE_LEAD] Lead deleted", logging.Fields{
		"lead_id": id.String(),
	})

	return nil
}

// leadWhere renders the filter as a WHERE clause over leads aliased l
func leadWhere(filter LeadFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argNum := 1

	if filter.CityID != nil {
		where += fmt.Sprintf(" AND l.city_id = $%d", argNum)
		args = append(args, *filter.CityID)
		argNum++
	}

	if filter.CreatedFrom != nil {
		where += fmt.Sprintf(" AND l.created_at >= $%d", argNum)
		args = append(args, *filter.CreatedFrom)
		argNum++
	}

	if filter.CreatedUntil != nil {
		where += fmt.Sprintf(" AND l.created_at < $%d", argNum)
		args = append(args, *filter.CreatedUntil)
	}

	return where, args
}

// Statistics groups leads by city. Leads stored without a simulation count towards
// lead_count but not towards the savings aggregates. Simulations that never pay back are
// counted apart and kept out of the payback average.
func (r *leadRepository) Statistics(ctx context.Context, filter LeadFilter) ([]*models.CityLeadStatistics, error) {
	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_LEAD_STATS] Lead statistics calculated", logging.Fields{
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	where, args := leadWhere(filter)
	query := `
		SELECT
			l.city_id,
			COALESCE(c.name, '') AS city_name,
			COALESCE(c.state, '') AS state,
			COUNT(*) AS lead_count,
			COUNT(s.id) AS simulation_count,
			COUNT(s.id) FILTER (WHERE NOT s.pays_back) AS non_paying_count,
			COALESCE(SUM(s.modules), 0) AS total_modules,
			COALESCE(SUM(s.yearly_difference_liters), 0) AS total_yearly_difference_liters,
			COALESCE(SUM(s.annual_savings_currency), 0) AS total_annual_savings_currency,
			AVG(s.payback_years) FILTER (WHERE s.pays_back) AS avg_payback_years
		FROM leads l
		LEFT JOIN cities c ON c.id = l.city_id
		LEFT JOIN simulations s ON s.lead_id = l.id` + where + `
		GROUP BY l.city_id, c.name, c.state
		ORDER BY lead_count DESC, l.city_id
	`

	stats := []*models.CityLeadStatistics{}
	if err := r.db.SelectContext(ctx, "lead_statistics", &stats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to calculate lead statistics: %w", err)
	}

	return stats, nil
}
