// Package sqlrepo implements fieldops.Repository over database/sql. The
// SQL is shared by the SQLite and PostgreSQL backends, which differ only in
// placeholders and column types.
package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deepnoodle-ai/captain"
	"github.com/deepnoodle-ai/captain/fieldops"
)

// timeLayout sorts lexically in time order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Dialect captures what differs between SQL backends.
type Dialect struct {
	// Numbered placeholders ($1, $2, ...) instead of ?.
	Numbered bool

	// Type of floating point columns.
	Float string
}

// Repository is a fieldops.Repository backed by a SQL database.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// Ensure Repository implements fieldops.Repository.
var _ fieldops.Repository = (*Repository)(nil)

// New initializes the schema in db and returns a repository.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Repository, error) {
	r := &Repository{db: db, dialect: dialect}
	if err := r.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return r, nil
}

// DB returns the underlying database handle.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			captain_id TEXT NOT NULL,
			service_type TEXT NOT NULL,
			service_name TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			address TEXT NOT NULL,
			lat %[1]s NOT NULL,
			lng %[1]s NOT NULL,
			scheduled_at TEXT NOT NULL,
			estimated_duration INTEGER NOT NULL,
			status TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			payment_amount %[1]s NOT NULL,
			distance_km %[1]s NOT NULL,
			before_images TEXT NOT NULL,
			after_images TEXT NOT NULL,
			completed_steps TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT,
			notes TEXT NOT NULL,
			rating INTEGER NOT NULL
		)`, r.dialect.Float),
		`CREATE INDEX IF NOT EXISTS jobs_captain_idx ON jobs (captain_id, scheduled_at)`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS attendance (
			id TEXT PRIMARY KEY,
			captain_id TEXT NOT NULL,
			date TEXT NOT NULL,
			check_in_time TEXT,
			check_out_time TEXT,
			check_in_selfie TEXT NOT NULL,
			check_in_lat %[1]s,
			check_in_lng %[1]s,
			materials_checked TEXT NOT NULL,
			material_quantities TEXT NOT NULL,
			opening_odometer %[1]s,
			closing_odometer %[1]s,
			closing_fuel %[1]s,
			status TEXT NOT NULL,
			notes TEXT NOT NULL
		)`, r.dialect.Float),
		`CREATE INDEX IF NOT EXISTS attendance_captain_idx ON attendance (captain_id, date)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them.
func (r *Repository) rebind(query string) string {
	if !r.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

const jobColumns = `id, captain_id, service_type, service_name, customer_name, customer_phone, address,
	lat, lng, scheduled_at, estimated_duration, status, payment_status, payment_amount, distance_km,
	before_images, after_images, completed_steps, started_at, completed_at, notes, rating`

func (r *Repository) SaveJob(ctx context.Context, job *fieldops.Job) error {
	if job.ID == "" {
		return errors.New("job id required")
	}
	before, err := encodeList(job.BeforeImages)
	if err != nil {
		return err
	}
	after, err := encodeList(job.AfterImages)
	if err != nil {
		return err
	}
	steps, err := encodeList(job.CompletedSteps)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			captain_id = excluded.captain_id,
			service_type = excluded.service_type,
			service_name = excluded.service_name,
			customer_name = excluded.customer_name,
			customer_phone = excluded.customer_phone,
			address = excluded.address,
			lat = excluded.lat,
			lng = excluded.lng,
			scheduled_at = excluded.scheduled_at,
			estimated_duration = excluded.estimated_duration,
			status = excluded.status,
			payment_status = excluded.payment_status,
			payment_amount = excluded.payment_amount,
			distance_km = excluded.distance_km,
			before_images = excluded.before_images,
			after_images = excluded.after_images,
			completed_steps = excluded.completed_steps,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			notes = excluded.notes,
			rating = excluded.rating`),
		job.ID,
		job.CaptainID,
		job.ServiceType,
		job.ServiceName,
		job.CustomerName,
		job.CustomerPhone,
		job.Address,
		job.Location.Lat,
		job.Location.Lng,
		formatTime(job.ScheduledAt),
		job.EstimatedDuration,
		string(job.Status),
		string(job.PaymentStatus),
		job.PaymentAmount,
		job.DistanceKm,
		before,
		after,
		steps,
		formatNullTime(job.StartedAt),
		formatNullTime(job.CompletedAt),
		job.Notes,
		job.Rating,
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id string) (*fieldops.Job, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, captain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

func (r *Repository) ListJobs(ctx context.Context, captainID string) ([]*fieldops.Job, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT `+jobColumns+` FROM jobs
		WHERE captain_id = ?
		ORDER BY scheduled_at, id`), captainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*fieldops.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*fieldops.Job, error) {
	var (
		job                   fieldops.Job
		status, payment       string
		scheduled             string
		before, after, steps  string
		startedAt, completeAt sql.NullString
	)
	err := row.Scan(
		&job.ID,
		&job.CaptainID,
		&job.ServiceType,
		&job.ServiceName,
		&job.CustomerName,
		&job.CustomerPhone,
		&job.Address,
		&job.Location.Lat,
		&job.Location.Lng,
		&scheduled,
		&job.EstimatedDuration,
		&status,
		&payment,
		&job.PaymentAmount,
		&job.DistanceKm,
		&before,
		&after,
		&steps,
		&startedAt,
		&completeAt,
		&job.Notes,
		&job.Rating,
	)
	if err != nil {
		return nil, err
	}
	job.Status = fieldops.JobStatus(status)
	job.PaymentStatus = fieldops.PaymentStatus(payment)
	if job.ScheduledAt, err = parseTime(scheduled); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if job.CompletedAt, err = parseNullTime(completeAt); err != nil {
		return nil, err
	}
	if err := decode(before, &job.BeforeImages); err != nil {
		return nil, err
	}
	if err := decode(after, &job.AfterImages); err != nil {
		return nil, err
	}
	if err := decode(steps, &job.CompletedSteps); err != nil {
		return nil, err
	}
	return &job, nil
}

const attendanceColumns = `id, captain_id, date, check_in_time, check_out_time, check_in_selfie,
	check_in_lat, check_in_lng, materials_checked, material_quantities,
	opening_odometer, closing_odometer, closing_fuel, status, notes`

func (r *Repository) SaveAttendance(ctx context.Context, record *fieldops.AttendanceRecord) error {
	if record.ID == "" {
		return errors.New("attendance id required")
	}
	materials, err := encodeList(record.MaterialsChecked)
	if err != nil {
		return err
	}
	quantities := record.MaterialQuantities
	if quantities == nil {
		quantities = map[string]float64{}
	}
	quantityJSON, err := json.Marshal(quantities)
	if err != nil {
		return err
	}
	var lat, lng sql.NullFloat64
	if loc := record.CheckInLocation; loc != nil {
		lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: loc.Lng, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			captain_id = excluded.captain_id,
			date = excluded.date,
			check_in_time = excluded.check_in_time,
			check_out_time = excluded.check_out_time,
			check_in_selfie = excluded.check_in_selfie,
			check_in_lat = excluded.check_in_lat,
			check_in_lng = excluded.check_in_lng,
			materials_checked = excluded.materials_checked,
			material_quantities = excluded.material_quantities,
			opening_odometer = excluded.opening_odometer,
			closing_odometer = excluded.closing_odometer,
			closing_fuel = excluded.closing_fuel,
			status = excluded.status,
			notes = excluded.notes`),
		record.ID,
		record.CaptainID,
		record.Date,
		formatNullTime(record.CheckInTime),
		formatNullTime(record.CheckOutTime),
		record.CheckInSelfie,
		lat,
		lng,
		materials,
		string(quantityJSON),
		nullFloat(record.OpeningOdometer),
		nullFloat(record.ClosingOdometer),
		nullFloat(record.ClosingFuel),
		string(record.Status),
		record.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to save attendance %s: %w", record.ID, err)
	}
	return nil
}

func (r *Repository) GetAttendance(ctx context.Context, id string) (*fieldops.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+attendanceColumns+` FROM attendance WHERE id = ?`), id)
	record, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attendance %s: %w", id, captain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance %s: %w", id, err)
	}
	return record, nil
}

func (r *Repository) ListAttendance(ctx context.Context, captainID string, from, to time.Time) ([]*fieldops.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT `+attendanceColumns+` FROM attendance
		WHERE captain_id = ? AND date >= ? AND date <= ?
		ORDER BY date, id`),
		captainID, from.Format(fieldops.DateLayout), to.Format(fieldops.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var records []*fieldops.AttendanceRecord
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanAttendance(row scanner) (*fieldops.AttendanceRecord, error) {
	var (
		record                        fieldops.AttendanceRecord
		checkIn, checkOut             sql.NullString
		lat, lng                      sql.NullFloat64
		materials, quantities, status string
		opening, closing, closingFuel sql.NullFloat64
	)
	err := row.Scan(
		&record.ID,
		&record.CaptainID,
		&record.Date,
		&checkIn,
		&checkOut,
		&record.CheckInSelfie,
		&lat,
		&lng,
		&materials,
		&quantities,
		&opening,
		&closing,
		&closingFuel,
		&status,
		&record.Notes,
	)
	if err != nil {
		return nil, err
	}
	record.Status = fieldops.AttendanceStatus(status)
	if record.CheckInTime, err = parseNullTime(checkIn); err != nil {
		return nil, err
	}
	if record.CheckOutTime, err = parseNullTime(checkOut); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		record.CheckInLocation = &fieldops.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	if err := decode(materials, &record.MaterialsChecked); err != nil {
		return nil, err
	}
	if err := decode(quantities, &record.MaterialQuantities); err != nil {
		return nil, err
	}
	if len(record.MaterialQuantities) == 0 {
		record.MaterialQuantities = nil
	}
	record.OpeningOdometer = floatPtr(opening)
	record.ClosingOdometer = floatPtr(closing)
	record.ClosingFuel = floatPtr(closingFuel)
	return &record, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decode(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
