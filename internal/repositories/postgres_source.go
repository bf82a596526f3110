package repositories

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"supplyrunway/internal/models"

	"github.com/jackc/pgx/v5"
)

// Querier is the read-only subset of pgxpool.Pool the source needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresSource struct {
	db    Querier
	query string
}

// NewPostgresSource runs a read-only SELECT and treats its result set as the inventory table
func NewPostgresSource(db Querier, query string) InventorySource {
	return &postgresSource{db: db, query: query}
}

func (s *postgresSource) Identity() string {
	return "postgres:" + s.query
}

func (s *postgresSource) Fetch(ctx context.Context) (*models.RawTable, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	table := &models.RawTable{Source: s.Identity(), Rows: [][]string{}}
	for _, fd := range rows.FieldDescriptions() {
		table.Columns = append(table.Columns, fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			if record[i], err = formatValue(v); err != nil {
				return nil, fmt.Errorf("failed to read column %s of inventory row %d: %w", table.Columns[i], len(table.Rows)+1, err)
			}
		}
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory rows: %w", err)
	}

	return table, nil
}

// formatValue renders a decoded column value as the text a file source would hold
func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly), nil
		}
		return val.Format(time.RFC3339), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int:
		return strconv.Itoa(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case bool:
		return strconv.FormatBool(val), nil
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return "", err
		}
		return formatValue(inner)
	default:
		return fmt.Sprint(val), nil
	}
}
