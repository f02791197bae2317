package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"healthdash/internal/core"
	applog "healthdash/internal/log"
	"healthdash/internal/source"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads the wide expenditure table from one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	skipRows      int
}

var _ source.Source = (*Client)(nil)

// New creates a Sheets client authenticated with service account credentials.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string, skipRows int) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Data"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, skipRows: skipRows}, nil
}

// newSheetsService initializes a read-only Sheets service. Service account
// credentials win; otherwise a user token saved by healthdash-oauth-init is
// used.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var opt goption.ClientOption
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials", applog.FieldComponent, applog.ComponentSource)
		opt = goption.WithCredentialsJSON([]byte(serviceAccountJSON))
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", applog.FieldComponent, applog.ComponentSource, "path", serviceAccountFile)
		credentialsJSON, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opt = goption.WithCredentialsJSON(credentialsJSON)
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")) != "":
		cfg, err := OAuthConfigFromEnv()
		if err != nil {
			return nil, err
		}
		tok, err := ReadToken(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using saved OAuth user token", applog.FieldComponent, applog.ComponentSource)
		opt = goption.WithTokenSource(cfg.TokenSource(ctx, tok))
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	service, err := gsheet.NewService(ctx, opt, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) Name() string {
	return "sheets:" + c.spreadsheetID + "/" + c.sheetName
}

// Fetch implements source.Source.
func (c *Client) Fetch(ctx context.Context) (core.RawTable, error) {
	if c.svc == nil {
		return core.RawTable{}, errors.New("sheets service not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	rng := sheetRange(c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return core.RawTable{}, fmt.Errorf("read %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Read dataset from sheet", applog.FieldComponent, applog.ComponentSource, "sheet", c.sheetName, "rows", len(resp.Values))
	return parseValues(resp.Values, c.skipRows)
}

// sheetRange quotes the sheet name so names with spaces resolve.
func sheetRange(sheet string) string {
	return fmt.Sprintf("'%s'!A:ZZ", strings.ReplaceAll(sheet, "'", "''"))
}
