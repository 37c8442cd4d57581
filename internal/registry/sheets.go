package registry

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"regwatch/internal/model"
)

// SheetsProvider reads feed URLs from a Google Sheets column.
type SheetsProvider struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheetRange    string
}

// NewSheetsProvider creates a provider for the given spreadsheet and range,
// authenticated with an API key. Extra options are appended after the key.
func NewSheetsProvider(ctx context.Context, spreadsheetID, apiKey, sheetRange string, opts ...option.ClientOption) (*SheetsProvider, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsProvider{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
	}, nil
}

// List implements Provider.
func (p *SheetsProvider) List(ctx context.Context) ([]model.FeedEndpoint, error) {
	resp, err := p.values.Get(p.spreadsheetID, p.sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get sheet values %s: %w", p.sheetRange, err)
	}
	return feedsFromRows(resp.Values), nil
}

// feedsFromRows keeps the first cell of every row that looks like a URL.
// Header rows and notes are skipped.
func feedsFromRows(rows [][]interface{}) []model.FeedEndpoint {
	var out []model.FeedEndpoint
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(fmt.Sprint(row[0]))
		if !strings.Contains(strings.ToLower(cell), "http") {
			continue
		}
		out = append(out, model.FeedEndpoint(cell))
	}
	return out
}
