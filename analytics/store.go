package analytics

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides database operations for analytics. The site's core
// data lives on the filesystem; this sidecar SQLite file holds only
// auxiliary visit counters.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create analytics dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	// WAL plus a busy timeout lets the collect endpoint write while
	// the stats endpoint reads.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, fmt.Errorf("configure analytics db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure analytics schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS visits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    visitor_id TEXT NOT NULL,
    ip_hash TEXT NOT NULL,
    browser TEXT NOT NULL,
    os TEXT NOT NULL,
    device TEXT NOT NULL,
    path TEXT NOT NULL,
    referrer TEXT,
    timestamp DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bot_visits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bot_name TEXT NOT NULL,
    ip_hash TEXT NOT NULL,
    user_agent TEXT NOT NULL,
    path TEXT NOT NULL,
    timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
CREATE INDEX IF NOT EXISTS idx_visits_visitor_id ON visits(visitor_id);
CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// SaveVisit stores a new visit.
func (s *Store) SaveVisit(v *Visit) error {
	_, err := s.db.Exec(
		`INSERT INTO visits (visitor_id, ip_hash, browser, os, device, path, referrer, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.IPHash, v.Browser, v.OS, v.Device, v.Path, v.Referrer, v.Timestamp.UTC())
	return err
}

// SaveBotVisit stores a new bot visit.
func (s *Store) SaveBotVisit(bv *BotVisit) error {
	_, err := s.db.Exec(
		`INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC())
	return err
}

// GetStats returns aggregated statistics for the given time range.
func (s *Store) GetStats(from, to time.Time) (*Stats, error) {
	stats := &Stats{
		Period:     from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopPages:   []PageStat{},
		Browsers:   []DimensionStat{},
		Referrers:  []DimensionStat{},
		DailyViews: []DailyView{},
	}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM visits WHERE timestamp BETWEEN ? AND ?`, from, to).
		Scan(&stats.TotalViews)
	if err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}

	err = s.db.QueryRow(`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp BETWEEN ? AND ?`, from, to).
		Scan(&stats.UniqueVisitors)
	if err != nil {
		return nil, fmt.Errorf("count unique visitors: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT path, COUNT(*) AS views FROM visits WHERE timestamp BETWEEN ? AND ?
		 GROUP BY path ORDER BY views DESC LIMIT 10`, from, to)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p PageStat
		if err := rows.Scan(&p.Path, &p.Views); err != nil {
			return nil, err
		}
		stats.TopPages = append(stats.TopPages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.Browsers, err = s.dimension(`browser`, from, to)
	if err != nil {
		return nil, fmt.Errorf("browser stats: %w", err)
	}
	stats.Referrers, err = s.dimension(`referrer`, from, to)
	if err != nil {
		return nil, fmt.Errorf("referrer stats: %w", err)
	}

	daily, err := s.db.Query(
		`SELECT date(timestamp), COUNT(*) FROM visits WHERE timestamp BETWEEN ? AND ?
		 GROUP BY date(timestamp) ORDER BY date(timestamp)`, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}
	defer daily.Close()
	for daily.Next() {
		var d DailyView
		if err := daily.Scan(&d.Date, &d.Views); err != nil {
			return nil, err
		}
		stats.DailyViews = append(stats.DailyViews, d)
	}
	if err := daily.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// dimension aggregates visit counts grouped by one column. The column
// name is fixed at the call sites, never user input.
func (s *Store) dimension(column string, from, to time.Time) ([]DimensionStat, error) {
	rows, err := s.db.Query(
		`SELECT `+column+`, COUNT(*) AS n FROM visits WHERE timestamp BETWEEN ? AND ?
		 GROUP BY `+column+` ORDER BY n DESC LIMIT 10`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetRealtimeVisitors counts unique visitors in the last five minutes.
func (s *Store) GetRealtimeVisitors() (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp > ?`,
		time.Now().UTC().Add(-5*time.Minute)).Scan(&n)
	return n, err
}

// DeleteOlderThan removes visits and bot visits older than the cutoff.
func (s *Store) DeleteOlderThan(cutoff time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM visits WHERE timestamp < ?`, cutoff.UTC()); err != nil {
		return fmt.Errorf("delete old visits: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM bot_visits WHERE timestamp < ?`, cutoff.UTC()); err != nil {
		return fmt.Errorf("delete old bot visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler periodically deletes data older than
// retentionDays. The returned function stops the scheduler.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				if err := s.DeleteOlderThan(cutoff); err != nil {
					log.Printf("analytics cleanup: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
