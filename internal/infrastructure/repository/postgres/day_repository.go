package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/predtracker/predtracker/internal/domain/prediction"
	qb "github.com/predtracker/predtracker/internal/platform/querybuilder"
	"github.com/predtracker/predtracker/internal/usecase"
)

// DayRepository persists one row per calendar date; the date column carries
// a unique constraint and the prediction list lives in a jsonb document, so
// a replace is a single all-or-nothing statement.
type DayRepository struct {
	db *sqlx.DB
}

func NewDayRepository(db *sqlx.DB) *DayRepository {
	return &DayRepository{db: db}
}

func (r *DayRepository) ListDays(ctx context.Context) ([]prediction.Day, error) {
	query, args, err := qb.Select("*").From("prediction_days").
		OrderBy("date").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select days query: %w", err)
	}

	var rows []dayTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select days: %w", err)
	}
	return decodeDayRows(rows)
}

func (r *DayRepository) GetDay(ctx context.Context, date string) (prediction.Day, error) {
	query, args, err := qb.Select("*").From("prediction_days").
		Where(qb.Eq("date", date)).
		ToSQL()
	if err != nil {
		return prediction.Day{}, fmt.Errorf("build get day query: %w", err)
	}

	var row dayTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.Day{}, fmt.Errorf("%w: day=%s", usecase.ErrNotFound, date)
		}
		return prediction.Day{}, fmt.Errorf("get day: %w", err)
	}
	return decodeDayRow(row)
}

func (r *DayRepository) GetDaysByUser(ctx context.Context, userID string) ([]prediction.Day, error) {
	filter, err := sonic.Marshal([]map[string]string{{"userId": userID}})
	if err != nil {
		return nil, fmt.Errorf("encode user filter: %w", err)
	}

	query, args, err := qb.Select("*").From("prediction_days").
		Where(qb.Expr("predictions @> ?::jsonb", string(filter))).
		OrderBy("date").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select days by user query: %w", err)
	}

	var rows []dayTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select days by user: %w", err)
	}
	return decodeDayRows(rows)
}

func (r *DayRepository) AppendToDay(ctx context.Context, date string, records []prediction.Record) error {
	encoded, err := sonic.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode predictions: %w", err)
	}

	query, args, err := qb.InsertInto("prediction_days").
		Columns("date", "predictions").
		Values(date, string(encoded)).
		Suffix("ON CONFLICT (date) DO UPDATE SET predictions = prediction_days.predictions || EXCLUDED.predictions, updated_at = NOW()").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build append day query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append to day: %w", err)
	}
	return nil
}

func (r *DayRepository) ReplaceDay(ctx context.Context, date string, records []prediction.Record) error {
	encoded, err := sonic.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode predictions: %w", err)
	}

	query, args, err := qb.InsertInto("prediction_days").
		Columns("date", "predictions").
		Values(date, string(encoded)).
		Suffix("ON CONFLICT (date) DO UPDATE SET predictions = EXCLUDED.predictions, updated_at = NOW()").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build replace day query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("replace day: %w", err)
	}
	return nil
}

func decodeDayRows(rows []dayTableModel) ([]prediction.Day, error) {
	out := make([]prediction.Day, 0, len(rows))
	for _, row := range rows {
		day, err := decodeDayRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, nil
}

func decodeDayRow(row dayTableModel) (prediction.Day, error) {
	day := prediction.Day{Date: row.Date}
	if len(row.Predictions) == 0 {
		return day, nil
	}
	if err := sonic.Unmarshal(row.Predictions, &day.Predictions); err != nil {
		return prediction.Day{}, fmt.Errorf("decode predictions for day %s: %w", row.Date, err)
	}
	return day, nil
}
