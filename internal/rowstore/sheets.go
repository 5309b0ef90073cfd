package rowstore

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/vynaa/vbase/internal/model"
)

// SheetsStore talks to a Google spreadsheet through the Sheets API with
// service-account credentials. One tab per entity, first row is the header.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
}

var _ Store = (*SheetsStore)(nil)

// NewSheets builds a SheetsStore from a service-account JSON key file.
func NewSheets(ctx context.Context, spreadsheetID, credentialsFile string) (*SheetsStore, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("empty spreadsheet id")
	}
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// EnsureSheets creates missing tabs and writes their header rows.
func (s *SheetsStore) EnsureSheets(ctx context.Context) error {
	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	existing := map[string]bool{}
	for _, sh := range doc.Sheets {
		existing[sh.Properties.Title] = true
	}

	headers := map[string][]string{
		usersSheet:     userHeader,
		databasesSheet: databaseHeader,
	}
	for title, header := range headers {
		if existing[title] {
			continue
		}
		_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheet %s: %w", title, err)
		}

		row := make([]any, len(header))
		for i, h := range header {
			row[i] = h
		}
		if err := s.update(ctx, fmt.Sprintf("%s!A1", title), row); err != nil {
			return fmt.Errorf("write header %s: %w", title, err)
		}
	}
	return nil
}

func (s *SheetsStore) LoadUsers(ctx context.Context) (map[string]*model.User, error) {
	rows, err := s.rows(ctx, usersSheet)
	if err != nil {
		return nil, err
	}
	users := map[string]*model.User{}
	for _, row := range rows {
		u := userFromRow(row)
		if u.Email == "" {
			continue
		}
		users[u.Email] = u
	}
	return users, nil
}

// SaveUser overwrites the row matched by email, or appends one.
func (s *SheetsStore) SaveUser(ctx context.Context, u *model.User) error {
	rows, err := s.rows(ctx, usersSheet)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if cell(row, 1) == u.Email {
			// header is row 1, data starts at row 2
			return s.update(ctx, fmt.Sprintf("%s!A%d", usersSheet, i+2), userToRow(u))
		}
	}
	return s.append(ctx, usersSheet, userToRow(u))
}

func (s *SheetsStore) LoadDatabases(ctx context.Context) (map[string][]*model.Database, error) {
	rows, err := s.rows(ctx, databasesSheet)
	if err != nil {
		return nil, err
	}
	byEmail := map[string][]*model.Database{}
	for _, row := range rows {
		db := databaseFromRow(row)
		if db.ID == "" || db.OwnerEmail == "" {
			continue
		}
		byEmail[db.OwnerEmail] = append(byEmail[db.OwnerEmail], db)
	}
	return byEmail, nil
}

// SaveDatabase upserts the row matched by database id, or appends one.
func (s *SheetsStore) SaveDatabase(ctx context.Context, db *model.Database) error {
	rows, err := s.rows(ctx, databasesSheet)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if cell(row, 0) == db.ID {
			return s.update(ctx, fmt.Sprintf("%s!A%d", databasesSheet, i+2), databaseToRow(db))
		}
	}
	return s.append(ctx, databasesSheet, databaseToRow(db))
}

// rows fetches all data rows of a tab, header excluded.
func (s *SheetsStore) rows(ctx context.Context, sheet string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get %s rows: %w", sheet, err)
	}
	if len(resp.Values) <= 1 {
		return nil, nil
	}
	return resp.Values[1:], nil
}

func (s *SheetsStore) update(ctx context.Context, rng string, row []any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *SheetsStore) append(ctx context.Context, sheet string, row []any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sheet+"!A1", &sheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}
