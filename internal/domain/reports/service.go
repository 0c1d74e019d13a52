package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Service is the read side: projections over the balance ledger and the
// request log. Nothing here mutates state.
type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

type BalanceRow struct {
	EmployeeID    string          `json:"employeeId"`
	EmployeeEmail string          `json:"employeeEmail"`
	LeaveTypeName string          `json:"leaveTypeName"`
	Year          int             `json:"year"`
	Allocated     decimal.Decimal `json:"allocatedDays"`
	Used          decimal.Decimal `json:"usedDays"`
	Remaining     decimal.Decimal `json:"remainingDays"`
}

func (s *Service) Balances(ctx context.Context, year int) ([]BalanceRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT b.employee_id, e.email, lt.name, b.year, b.allocated_days, b.used_days, b.remaining_days
    FROM leave_balances b
    JOIN employees e ON b.employee_id = e.id
    JOIN leave_types lt ON b.leave_type_id = lt.id
    WHERE b.year = $1
    ORDER BY e.email, lt.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceRow
	for rows.Next() {
		var row BalanceRow
		if err := rows.Scan(&row.EmployeeID, &row.EmployeeEmail, &row.LeaveTypeName, &row.Year, &row.Allocated, &row.Used, &row.Remaining); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type UsageRow struct {
	LeaveTypeName string          `json:"leaveTypeName"`
	TotalDays     decimal.Decimal `json:"totalDays"`
	Requests      int             `json:"requests"`
}

// Usage sums approved days per leave type for requests starting in the year.
func (s *Service) Usage(ctx context.Context, year int) ([]UsageRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT lt.name, COALESCE(SUM(r.total_days), 0), COUNT(1)
    FROM leave_requests r
    JOIN leave_types lt ON r.leave_type_id = lt.id
    WHERE r.status = 'approved' AND EXTRACT(YEAR FROM r.start_date) = $1
    GROUP BY lt.name
    ORDER BY lt.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var row UsageRow
		if err := rows.Scan(&row.LeaveTypeName, &row.TotalDays, &row.Requests); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type CalendarEntry struct {
	RequestID     string    `json:"requestId"`
	EmployeeEmail string    `json:"employeeEmail"`
	LeaveTypeName string    `json:"leaveTypeName"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	Status        string    `json:"status"`
}

// Calendar lists pending and approved leave intersecting [from, to].
func (s *Service) Calendar(ctx context.Context, from, to time.Time) ([]CalendarEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, e.email, lt.name, r.start_date, r.end_date, r.status
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
    JOIN leave_types lt ON r.leave_type_id = lt.id
    WHERE r.status IN ('pending','approved') AND r.start_date <= $2 AND r.end_date >= $1
    ORDER BY r.start_date
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CalendarEntry
	for rows.Next() {
		var entry CalendarEntry
		if err := rows.Scan(&entry.RequestID, &entry.EmployeeEmail, &entry.LeaveTypeName, &entry.StartDate, &entry.EndDate, &entry.Status); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Service) CalendarCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	entries, err := s.Calendar(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"request_id", "employee", "leave_type", "start_date", "end_date", "status"}); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		record := []string{
			entry.RequestID,
			entry.EmployeeEmail,
			entry.LeaveTypeName,
			entry.StartDate.Format("2006-01-02"),
			entry.EndDate.Format("2006-01-02"),
			entry.Status,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) CalendarPDF(ctx context.Context, from, to time.Time) ([]byte, error) {
	entries, err := s.Calendar(ctx, from, to)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Calendar")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("%s to %s", from.Format("2006-01-02"), to.Format("2006-01-02")))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 7, "Employee", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 7, "Leave Type", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "From", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "To", "1", 0, "", false, 0, "")
	pdf.CellFormat(25, 7, "Status", "1", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, entry := range entries {
		pdf.CellFormat(60, 7, entry.EmployeeEmail, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 7, entry.LeaveTypeName, "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, entry.StartDate.Format("2006-01-02"), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, entry.EndDate.Format("2006-01-02"), "1", 0, "", false, 0, "")
		pdf.CellFormat(25, 7, entry.Status, "1", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
