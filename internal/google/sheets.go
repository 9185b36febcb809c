package google

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"deskhub/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	ledgerSheet   = "Ledger"
	ledgerHeaders = "Ledger!A1:H1"
	ledgerIDRange = "Ledger!A2:A"
)

// SheetsLedger mirrors reservations into a Google Sheets spreadsheet so
// operators get a live ledger without touching the database.
type SheetsLedger struct {
	service       *sheets.Service
	spreadsheetID string

	// reservation id -> sheet row, refreshed lazily on misses
	rowCache map[int64]int
	cacheMu  sync.RWMutex
}

func NewSheetsLedger(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsLedger, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	ledger := &SheetsLedger{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[int64]int),
	}
	if err := ledger.ensureHeaders(ctx); err != nil {
		return nil, err
	}
	return ledger, nil
}

// TestConnection reads the header row to verify access to the spreadsheet.
func (l *SheetsLedger) TestConnection(ctx context.Context) error {
	if _, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, ledgerHeaders).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

func (l *SheetsLedger) ensureHeaders(ctx context.Context) error {
	resp, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, ledgerHeaders).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read ledger headers: %w", err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	headers := &sheets.ValueRange{Values: [][]interface{}{{
		"ID", "User ID", "Office ID", "Start Date", "End Date", "Days", "Price", "Status",
	}}}
	_, err = l.service.Spreadsheets.Values.
		Update(l.spreadsheetID, ledgerHeaders, headers).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write ledger headers: %w", err)
	}
	return nil
}

// AppendReservation adds one reservation row to the end of the ledger.
func (l *SheetsLedger) AppendReservation(ctx context.Context, res *models.Reservation) error {
	row := &sheets.ValueRange{Values: [][]interface{}{{
		res.ID,
		res.UserID,
		res.OfficeID,
		res.StartDate.Format(models.DateFormat),
		res.EndDate.Format(models.DateFormat),
		models.DaysInclusive(res.StartDate, res.EndDate),
		res.Price,
		res.Status,
	}}}

	resp, err := l.service.Spreadsheets.Values.
		Append(l.spreadsheetID, ledgerSheet, row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append reservation %d: %w", res.ID, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if rowNum, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			l.cacheMu.Lock()
			l.rowCache[res.ID] = rowNum
			l.cacheMu.Unlock()
		}
	}
	return nil
}

// UpdateReservationStatus rewrites the status cell of the reservation's row.
func (l *SheetsLedger) UpdateReservationStatus(ctx context.Context, reservationID int64, status string) error {
	rowNum, err := l.findRow(ctx, reservationID)
	if err != nil {
		return err
	}

	cell := fmt.Sprintf("%s!H%d", ledgerSheet, rowNum)
	_, err = l.service.Spreadsheets.Values.
		Update(l.spreadsheetID, cell, &sheets.ValueRange{Values: [][]interface{}{{status}}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update status of reservation %d: %w", reservationID, err)
	}
	return nil
}

func (l *SheetsLedger) findRow(ctx context.Context, reservationID int64) (int, error) {
	l.cacheMu.RLock()
	rowNum, ok := l.rowCache[reservationID]
	l.cacheMu.RUnlock()
	if ok {
		return rowNum, nil
	}

	resp, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, ledgerIDRange).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to scan ledger ids: %w", err)
	}

	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		id, err := parseCellID(row[0])
		if err != nil {
			continue
		}
		l.rowCache[id] = i + 2 // data starts on row 2
	}

	if rowNum, ok := l.rowCache[reservationID]; ok {
		return rowNum, nil
	}
	return 0, fmt.Errorf("reservation %d not found in ledger", reservationID)
}

func parseCellID(cell interface{}) (int64, error) {
	switch v := cell.(type) {
	case string:
		return strconv.ParseInt(v, 10, 64)
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected cell type %T", cell)
	}
}

// rowFromRange extracts the starting row from an A1 range like
// "Ledger!A5:H5".
func rowFromRange(a1 string) (int, bool) {
	start := -1
	for i := 0; i < len(a1); i++ {
		c := a1[i]
		if c >= '0' && c <= '9' {
			start = i
			break
		}
		if c == ':' {
			break
		}
	}
	if start == -1 {
		return 0, false
	}
	end := start
	for end < len(a1) && a1[end] >= '0' && a1[end] <= '9' {
		end++
	}
	rowNum, err := strconv.Atoi(a1[start:end])
	if err != nil {
		return 0, false
	}
	return rowNum, true
}
