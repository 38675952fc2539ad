package notify

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// RowAppender appends one row to a spreadsheet range.
type RowAppender interface {
	AppendRow(ctx context.Context, row []interface{}) error
}

// SheetNotifier appends a row per event to a Google spreadsheet.
type SheetNotifier struct {
	appender RowAppender
}

// NewSheetNotifier creates a spreadsheet sink over appender.
func NewSheetNotifier(appender RowAppender) *SheetNotifier {
	return &SheetNotifier{appender: appender}
}

func (n *SheetNotifier) Name() string { return "sheets" }

func (n *SheetNotifier) Notify(ctx context.Context, event model.MatchedEvent) error {
	return n.appender.AppendRow(ctx, SheetRow(event))
}

// SheetsAppender appends rows with the Sheets v4 API.
type SheetsAppender struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheetsAppender creates a Sheets client from a service account
// credentials file.
func NewSheetsAppender(ctx context.Context, credentialsFile, spreadsheetID, writeRange string) (*SheetsAppender, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsAppender{service: service, spreadsheetID: spreadsheetID, writeRange: writeRange}, nil
}

func (a *SheetsAppender) AppendRow(ctx context.Context, row []interface{}) error {
	values := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := a.service.Spreadsheets.Values.
		Append(a.spreadsheetID, a.writeRange, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row to spreadsheet %s: %w", a.spreadsheetID, err)
	}
	return nil
}
