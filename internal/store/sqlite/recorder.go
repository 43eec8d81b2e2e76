package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"swing-screenerv1/internal/model"
)

// RecordScan writes a scan report and its opportunities in one transaction.
// Returns the new scan row id.
func (s *Store) RecordScan(report *model.ScanReport) (int64, error) {
	start := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	res, err := tx.Exec(
		`INSERT INTO scans (universe, started_at, elapsed_ms, opportunities) VALUES (?, ?, ?, ?)`,
		report.Universe, report.StartedAt.Unix(), report.Elapsed.Milliseconds(), len(report.Opportunities),
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite insert scan: %w", err)
	}
	scanID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	stageStmt, err := tx.Prepare(`
		INSERT INTO scan_stages (scan_id, stage_index, name, description, input, passed, failed, pass_rate, elapsed_ms, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stageStmt.Close()

	for _, st := range report.Funnel {
		var failures []byte
		if len(st.Failures) > 0 {
			failures, err = json.Marshal(st.Failures)
			if err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("marshal stage failures: %w", err)
			}
		}
		_, err = stageStmt.Exec(
			scanID, st.StageIndex, st.Name, st.Description,
			st.InputCount, st.PassedCount, st.FailedCount, st.PassRate,
			st.Elapsed.Milliseconds(), string(failures),
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite insert stage: %w", err)
		}
	}

	oppStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO opportunities
			(scan_id, symbol, tier, composite, return_pct, confidence_pct, days_to_target,
			 entry_price, target_price, stop_price, shares, position_value, target_profit,
			 max_loss, risk_reward, scores)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer oppStmt.Close()

	for _, opp := range report.Opportunities {
		scores, err := json.Marshal(opp.Scores)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("marshal scores: %w", err)
		}
		_, err = oppStmt.Exec(
			scanID, opp.Symbol, opp.Tier.String(), opp.Scores.Composite,
			opp.Estimate.ReturnPct, opp.Estimate.ConfidencePct, opp.Estimate.DaysToTarget,
			opp.EntryPrice, opp.TargetPrice, opp.StopPrice, opp.Shares,
			opp.PositionValue, opp.TargetProfit, opp.MaxLoss, opp.RiskReward,
			string(scores),
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite insert opportunity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Printf("[sqlite] recorded scan %d (%d stages, %d opportunities) in %v",
		scanID, len(report.Funnel), len(report.Opportunities), time.Since(start))
	return scanID, nil
}

// LastScan loads the most recent scan's meta row. Returns ok=false if the
// scans table is empty.
func (s *Store) LastScan() (universe string, startedAt time.Time, ok bool, err error) {
	var ts int64
	err = s.db.QueryRow(`SELECT universe, started_at FROM scans ORDER BY id DESC LIMIT 1`).Scan(&universe, &ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, fmt.Errorf("sqlite read last scan: %w", err)
	}
	return universe, time.Unix(ts, 0).UTC(), true, nil
}

// OpportunityRow is the slim opportunity view served to the monitor.
type OpportunityRow struct {
	Symbol        string
	Tier          string
	ReturnPct     float64
	ConfidencePct float64
}

// LatestOpportunities returns the ranked opportunities of the most recent
// scan, best first. Empty when no scan has run yet.
func (s *Store) LatestOpportunities() ([]OpportunityRow, error) {
	rows, err := s.db.Query(`
		SELECT symbol, tier, return_pct, confidence_pct
		FROM opportunities
		WHERE scan_id = (SELECT MAX(id) FROM scans)
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query latest opportunities: %w", err)
	}
	defer rows.Close()

	var opps []OpportunityRow
	for rows.Next() {
		var o OpportunityRow
		if err := rows.Scan(&o.Symbol, &o.Tier, &o.ReturnPct, &o.ConfidencePct); err != nil {
			return nil, fmt.Errorf("sqlite scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// PruneScans deletes all but the most recent keep scans, along with their
// stage rows and opportunities.
func (s *Store) PruneScans(keep int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	cutoff := `(SELECT id FROM scans ORDER BY id DESC LIMIT ?)`
	for _, q := range []string{
		`DELETE FROM scan_stages WHERE scan_id NOT IN ` + cutoff,
		`DELETE FROM opportunities WHERE scan_id NOT IN ` + cutoff,
		`DELETE FROM scans WHERE id NOT IN ` + cutoff,
	} {
		if _, err := tx.Exec(q, keep); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite prune scans: %w", err)
		}
	}
	return tx.Commit()
}
