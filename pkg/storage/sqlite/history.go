package sqlite

import (
	"context"
	"fmt"

	"filescan/pkg/domain"

	"github.com/doug-martin/goqu/v9"
)

const (
	historyTable = "history"
)

// List returns all retained records ordered most recent first. Rows that fail
// to decode are skipped so one corrupt row cannot take the whole list down.
func (s *SQLite) List(ctx context.Context) ([]domain.HistoryItem, error) {
	var rows []HistoryRow
	if err := s.Builder.From(historyTable).
		Order(goqu.I("scan_date").Desc(), goqu.I("id").Desc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch history from sqlite: %w", err)
	}

	out := make([]domain.HistoryItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].ToDomain()
		if err != nil {
			continue
		}

		out = append(out, *item)
	}

	return out, nil
}

// Insert stores the record and truncates the log to the configured cap. Both
// steps run inside one transaction so a crash cannot leave the log over cap.
func (s *SQLite) Insert(ctx context.Context, item domain.HistoryItem) error {
	var row HistoryRow
	row.FromDomain(item)

	return s.withTx(ctx, func(tx *SQLite) error {
		if _, err := tx.Builder.Insert(historyTable).
			Rows(row).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("could not insert history record into sqlite: %w", err)
		}

		keep := tx.Builder.From(historyTable).
			Select("id").
			Order(goqu.I("scan_date").Desc(), goqu.I("id").Desc()).
			Limit(uint(tx.cap)) //nolint: gosec
		if _, err := tx.Builder.Delete(historyTable).
			Where(goqu.I("id").NotIn(keep)).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("could not truncate history in sqlite: %w", err)
		}

		return nil
	})
}

// Remove deletes a single record by id and reports whether one was removed.
func (s *SQLite) Remove(ctx context.Context, id domain.HistoryID) (bool, error) {
	res, err := s.Builder.Delete(historyTable).
		Where(goqu.I("id").Eq(id.String())).
		Executor().ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("could not delete history record from sqlite: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not read affected rows: %w", err)
	}

	return affected > 0, nil
}

// Clear deletes every record and returns the number removed.
func (s *SQLite) Clear(ctx context.Context) (int64, error) {
	res, err := s.Builder.Delete(historyTable).
		Executor().ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not clear history in sqlite: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not read affected rows: %w", err)
	}

	return affected, nil
}

// Count returns the number of retained records.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	count, err := s.Builder.From(historyTable).CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not count history in sqlite: %w", err)
	}

	return count, nil
}

// Fingerprint combines the row count with the newest id. Any insert, removal
// or clear changes at least one of the two, which is what the cross-process
// watcher compares between polls.
func (s *SQLite) Fingerprint(ctx context.Context) (string, error) {
	var (
		count int64
		maxID string
	)
	row := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MAX(id), '') FROM "+historyTable)
	if err := row.Scan(&count, &maxID); err != nil {
		return "", fmt.Errorf("could not fingerprint history in sqlite: %w", err)
	}

	return fmt.Sprintf("%d:%s", count, maxID), nil
}
