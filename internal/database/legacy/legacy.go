// Package legacy reads the original PHP face-attendance MySQL database
// (face_attendance_db) so its roster and attendance log can be imported.
package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Employee is a row from the legacy employees table. The face_data column
// holds an MD5 content hash, not a comparable feature, so imports re-extract
// features from the stored photo when it is still available.
type Employee struct {
	EmployeeID     string
	Name           string
	Department     string
	PhotoURL       string
	RegisteredDate time.Time
}

// AttendanceRow is a row from the legacy attendance table. TimeOut is nil
// for rows the old system never closed.
type AttendanceRow struct {
	EmployeeID string
	Date       string // YYYY-MM-DD
	TimeIn     string // HH:MM:SS
	TimeOut    *string
}

// Pool manages a connection to the legacy MySQL database.
type Pool struct {
	db *sql.DB
}

// NewPool opens a connection to the legacy database.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("legacy MySQL DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping legacy database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing legacy database connection: %w", err)
		}
	}
	return nil
}

// Employees returns all legacy employees, oldest registration first so
// enrollment order is preserved on import.
func (p *Pool) Employees(ctx context.Context) ([]Employee, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT employee_id, name, COALESCE(department, ''), COALESCE(photo_url, ''), registered_date
		FROM employees
		ORDER BY registered_date, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.EmployeeID, &e.Name, &e.Department, &e.PhotoURL, &e.RegisteredDate); err != nil {
			return nil, fmt.Errorf("scan legacy employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy employees: %w", err)
	}
	return employees, nil
}

// Attendance returns all legacy attendance rows in insertion order.
func (p *Pool) Attendance(ctx context.Context) ([]AttendanceRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT employee_id, DATE_FORMAT(attendance_date, '%Y-%m-%d'), TIME_FORMAT(time_in, '%H:%i:%s'), TIME_FORMAT(time_out, '%H:%i:%s')
		FROM attendance
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy attendance: %w", err)
	}
	defer rows.Close()

	var records []AttendanceRow
	for rows.Next() {
		var rec AttendanceRow
		var timeOut sql.NullString
		if err := rows.Scan(&rec.EmployeeID, &rec.Date, &rec.TimeIn, &timeOut); err != nil {
			return nil, fmt.Errorf("scan legacy attendance row: %w", err)
		}
		if timeOut.Valid {
			rec.TimeOut = &timeOut.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy attendance: %w", err)
	}
	return records, nil
}
