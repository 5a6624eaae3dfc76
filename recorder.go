package bme280

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Recorder stores readings in a sqlite database.
type Recorder struct {
	db *sql.DB

	mu   sync.Mutex
	last *Reading
}

// HistoricalData is one stored reading.
type HistoricalData struct {
	TimestampMicros int64   `json:"timestamp_us"`
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	Pressure        float64 `json:"pressure"`
}

func NewRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			timestamp_us INTEGER PRIMARY KEY,
			temperature REAL,
			humidity REAL,
			pressure REAL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating readings table")
	}

	return &Recorder{db: db}, nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}

// Record stores reading. A reading with the same microsecond timestamp as
// an existing row replaces it.
func (r *Recorder) Record(reading Reading) error {
	if reading.Time.IsZero() {
		reading.Time = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO readings (
			timestamp_us,
			temperature,
			humidity,
			pressure
		) VALUES (?, ?, ?, ?)`,
		reading.Time.UnixMicro(),
		reading.Temperature,
		reading.Humidity,
		reading.Pressure,
	)
	if err != nil {
		return errors.Wrap(err, "inserting reading")
	}

	r.mu.Lock()
	r.last = &reading
	r.mu.Unlock()
	return nil
}

// Last returns the most recently recorded reading.
func (r *Recorder) Last() (Reading, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Reading{}, false
	}
	return *r.last, true
}

// History returns the readings taken between startTime and endTime
// inclusive, both in microseconds since the epoch, oldest first.
func (r *Recorder) History(startTime, endTime int64) ([]HistoricalData, error) {
	rows, err := r.db.Query(`
		SELECT
			timestamp_us,
			temperature,
			humidity,
			pressure
		FROM readings
		WHERE timestamp_us BETWEEN ? AND ?
		ORDER BY timestamp_us ASC
	`, startTime, endTime)
	if err != nil {
		return nil, errors.Wrap(err, "querying readings")
	}
	defer rows.Close()

	var results []HistoricalData

	for rows.Next() {
		var point HistoricalData
		err := rows.Scan(
			&point.TimestampMicros,
			&point.Temperature,
			&point.Humidity,
			&point.Pressure,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scanning reading")
		}
		results = append(results, point)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
