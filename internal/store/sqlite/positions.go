package sqlite

import (
	"fmt"
	"time"

	"swing-screenerv1/internal/model"
)

// OpenPositions returns every position still marked OPEN, ordered by symbol.
func (s *Store) OpenPositions() ([]model.OpenPosition, error) {
	rows, err := s.db.Query(`
		SELECT symbol, entry_price, target_price, stop_price, shares, entered_on, max_hold_days
		FROM positions
		WHERE status = 'OPEN'
		ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query positions: %w", err)
	}
	defer rows.Close()

	var positions []model.OpenPosition
	for rows.Next() {
		var p model.OpenPosition
		var enteredUnix int64
		if err := rows.Scan(&p.Symbol, &p.EntryPrice, &p.TargetPrice, &p.StopPrice, &p.Shares, &enteredUnix, &p.MaxHoldDays); err != nil {
			return nil, fmt.Errorf("sqlite scan position: %w", err)
		}
		p.EnteredOn = time.Unix(enteredUnix, 0).UTC()
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// SavePosition upserts an open position. Re-saving a symbol replaces its
// trade plan and resets its status to OPEN.
func (s *Store) SavePosition(p model.OpenPosition) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO positions
			(symbol, entry_price, target_price, stop_price, shares, entered_on, max_hold_days, status, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'OPEN', NULL)
	`, p.Symbol, p.EntryPrice, p.TargetPrice, p.StopPrice, p.Shares, p.EnteredOn.Unix(), p.MaxHoldDays)
	if err != nil {
		return fmt.Errorf("sqlite save position: %w", err)
	}
	return nil
}

// ClosePosition marks a position closed with its exit status.
func (s *Store) ClosePosition(symbol string, status model.PositionStatus) error {
	res, err := s.db.Exec(`
		UPDATE positions SET status = ?, closed_at = ? WHERE symbol = ? AND status = 'OPEN'
	`, string(status), time.Now().Unix(), symbol)
	if err != nil {
		return fmt.Errorf("sqlite close position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("close position %s: no open position", symbol)
	}
	return nil
}

// RecordDecision appends one monitor verdict to the decision log.
func (s *Store) RecordDecision(d model.PositionDecision) error {
	_, err := s.db.Exec(`
		INSERT INTO position_decisions (symbol, status, price, pnl_pct, days_held, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.Symbol, string(d.Status), d.CurrentPrice, d.CurrentPnLPct, d.DaysHeld, d.CheckedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite record decision: %w", err)
	}
	return nil
}

// Decisions returns the most recent limit decisions for a symbol, newest first.
func (s *Store) Decisions(symbol string, limit int) ([]model.PositionDecision, error) {
	rows, err := s.db.Query(`
		SELECT symbol, status, price, pnl_pct, days_held, checked_at
		FROM position_decisions
		WHERE symbol = ?
		ORDER BY id DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []model.PositionDecision
	for rows.Next() {
		var d model.PositionDecision
		var status string
		var checkedUnix int64
		if err := rows.Scan(&d.Symbol, &status, &d.CurrentPrice, &d.CurrentPnLPct, &d.DaysHeld, &checkedUnix); err != nil {
			return nil, fmt.Errorf("sqlite scan decision: %w", err)
		}
		d.Status = model.PositionStatus(status)
		d.CheckedAt = time.Unix(checkedUnix, 0).UTC()
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
