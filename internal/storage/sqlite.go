package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/railtonbritomcp/App-agendei/internal/report"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "agendei.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			duration INTEGER NOT NULL DEFAULT 30,
			description TEXT NOT NULL DEFAULT '',
			has_report INTEGER NOT NULL DEFAULT 0
		);
	`); err != nil {
		return fmt.Errorf("create appointments table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			appointment_id TEXT NOT NULL UNIQUE,
			timestamp TEXT NOT NULL,
			summary TEXT NOT NULL,
			decisions TEXT NOT NULL,
			action_items TEXT NOT NULL,
			full_transcript TEXT NOT NULL,
			FOREIGN KEY(appointment_id) REFERENCES appointments(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create reports table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS report_requests (
			session_id TEXT NOT NULL,
			transcript_hash TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, transcript_hash)
		);
	`); err != nil {
		return fmt.Errorf("create report_requests table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(date, time)"); err != nil {
		return fmt.Errorf("create appointments index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// CreateAppointment normalizes and inserts a, assigning an id when empty.
func (s *SQLiteStore) CreateAppointment(a Appointment) (Appointment, error) {
	a, err := normalizeAppointment(a)
	if err != nil {
		return Appointment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.HasReport = false

	_, err = s.db.Exec(
		`INSERT INTO appointments(id, title, date, time, duration, description) VALUES(?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Date, a.Time, a.Duration, a.Description,
	)
	if err != nil {
		return Appointment{}, fmt.Errorf("create appointment %s: %w", a.ID, err)
	}
	return a, nil
}

// UpdateAppointment rewrites the editable fields; has_report is left alone.
func (s *SQLiteStore) UpdateAppointment(a Appointment) (Appointment, error) {
	a, err := normalizeAppointment(a)
	if err != nil {
		return Appointment{}, err
	}

	res, err := s.db.Exec(
		`UPDATE appointments SET title = ?, date = ?, time = ?, duration = ?, description = ? WHERE id = ?`,
		a.Title, a.Date, a.Time, a.Duration, a.Description, a.ID,
	)
	if err != nil {
		return Appointment{}, fmt.Errorf("update appointment %s: %w", a.ID, err)
	}
	if err := expectRow(res, "appointment "+a.ID); err != nil {
		return Appointment{}, err
	}
	return s.GetAppointment(a.ID)
}

// DeleteAppointment removes an appointment and, by cascade, its report.
func (s *SQLiteStore) DeleteAppointment(id string) error {
	res, err := s.db.Exec(`DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	return expectRow(res, "appointment "+id)
}

func (s *SQLiteStore) GetAppointment(id string) (Appointment, error) {
	row := s.db.QueryRow(
		`SELECT id, title, date, time, duration, description, has_report FROM appointments WHERE id = ?`,
		id,
	)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Appointment{}, fmt.Errorf("query appointment %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLiteStore) ListAppointmentsByDate(date string) ([]Appointment, error) {
	rows, err := s.db.Query(
		`SELECT id, title, date, time, duration, description, has_report
		 FROM appointments
		 WHERE date = ?
		 ORDER BY time ASC, title ASC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query appointments by date %s: %w", date, err)
	}
	defer func() { _ = rows.Close() }()

	appointments := make([]Appointment, 0, 8)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointment rows: %w", err)
	}
	return appointments, nil
}

// ListDates returns every date holding at least one appointment, ascending.
func (s *SQLiteStore) ListDates() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT date FROM appointments ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates rows: %w", err)
	}

	return dates, nil
}

// SaveReport stores r as the current report of its appointment, replacing
// any previous one, and marks the appointment as having a report.
func (s *SQLiteStore) SaveReport(r Report) (Report, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	decisions, actionItems, err := encodeLists(r.Report)
	if err != nil {
		return Report{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Report{}, fmt.Errorf("begin save report: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE appointments SET has_report = 1 WHERE id = ?`, r.AppointmentID)
	if err != nil {
		return Report{}, fmt.Errorf("mark appointment %s: %w", r.AppointmentID, err)
	}
	if err := expectRow(res, "appointment "+r.AppointmentID); err != nil {
		return Report{}, err
	}

	if _, err := tx.Exec(`DELETE FROM reports WHERE appointment_id = ?`, r.AppointmentID); err != nil {
		return Report{}, fmt.Errorf("replace report for %s: %w", r.AppointmentID, err)
	}
	_, err = tx.Exec(
		`INSERT INTO reports(id, appointment_id, timestamp, summary, decisions, action_items, full_transcript)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AppointmentID, r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.Summary, decisions, actionItems, r.FullTranscript,
	)
	if err != nil {
		return Report{}, fmt.Errorf("insert report for %s: %w", r.AppointmentID, err)
	}

	if err := tx.Commit(); err != nil {
		return Report{}, fmt.Errorf("commit report for %s: %w", r.AppointmentID, err)
	}
	return r, nil
}

func (s *SQLiteStore) GetReport(id string) (Report, error) {
	return s.queryReport(`WHERE id = ?`, id)
}

func (s *SQLiteStore) GetReportByAppointment(appointmentID string) (Report, error) {
	return s.queryReport(`WHERE appointment_id = ?`, appointmentID)
}

func (s *SQLiteStore) queryReport(where, arg string) (Report, error) {
	row := s.db.QueryRow(
		`SELECT id, appointment_id, timestamp, summary, decisions, action_items, full_transcript FROM reports `+where,
		arg,
	)

	var r Report
	var ts, decisions, actionItems string
	err := row.Scan(&r.ID, &r.AppointmentID, &ts, &r.Summary, &decisions, &actionItems, &r.FullTranscript)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, fmt.Errorf("report %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return Report{}, fmt.Errorf("query report %s: %w", arg, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Report{}, fmt.Errorf("parse report %s timestamp: %w", r.ID, err)
	}
	r.Timestamp = parsed

	if err := json.Unmarshal([]byte(decisions), &r.Decisions); err != nil {
		return Report{}, fmt.Errorf("decode report %s decisions: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(actionItems), &r.ActionItems); err != nil {
		return Report{}, fmt.Errorf("decode report %s action items: %w", r.ID, err)
	}
	return r, nil
}

// UpdateReport applies a user edit. Lists are normalized the same way as
// generated reports.
func (s *SQLiteStore) UpdateReport(r Report) (Report, error) {
	r.Report = report.NormalizeEdit(r.Report)
	decisions, actionItems, err := encodeLists(r.Report)
	if err != nil {
		return Report{}, err
	}

	res, err := s.db.Exec(
		`UPDATE reports SET summary = ?, decisions = ?, action_items = ?, full_transcript = ? WHERE id = ?`,
		r.Summary, decisions, actionItems, r.FullTranscript, r.ID,
	)
	if err != nil {
		return Report{}, fmt.Errorf("update report %s: %w", r.ID, err)
	}
	if err := expectRow(res, "report "+r.ID); err != nil {
		return Report{}, err
	}
	return s.GetReport(r.ID)
}

func (s *SQLiteStore) ClaimReportRequest(sessionID, transcriptHash string) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO report_requests(session_id, transcript_hash) VALUES(?, ?)`,
		sessionID,
		transcriptHash,
	)
	if err != nil {
		return false, fmt.Errorf("claim report request for session %s: %w", sessionID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim report rows affected: %w", err)
	}

	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (Appointment, error) {
	var a Appointment
	var hasReport int
	if err := row.Scan(&a.ID, &a.Title, &a.Date, &a.Time, &a.Duration, &a.Description, &hasReport); err != nil {
		return Appointment{}, err
	}
	a.HasReport = hasReport != 0
	return a, nil
}

func encodeLists(r report.Report) (string, string, error) {
	decisions, err := json.Marshal(nonNil(r.Decisions))
	if err != nil {
		return "", "", fmt.Errorf("encode decisions: %w", err)
	}
	actionItems, err := json.Marshal(nonNil(r.ActionItems))
	if err != nil {
		return "", "", fmt.Errorf("encode action items: %w", err)
	}
	return string(decisions), string(actionItems), nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func expectRow(res sql.Result, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
