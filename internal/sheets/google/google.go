package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	ports "pointsledger/internal/sheets"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	valueInputOption  = "USER_ENTERED"
	insertDataOption  = "INSERT_ROWS"
	valueRenderOption = "FORMATTED_VALUE"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID (GOOGLE_SHEET_ID is accepted too).
// Credentials, first match wins: GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or the pair
// GOOGLE_CLIENT_EMAIL + GOOGLE_PRIVATE_KEY.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		spreadsheetID = strings.TrimSpace(os.Getenv("GOOGLE_SHEET_ID"))
	}
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	conf, err := jwtConfigFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	svc, err := newSheetsService(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

// jwtConfigFromEnv resolves service account credentials.
func jwtConfigFromEnv(ctx context.Context) (*jwt.Config, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	clientEmail := strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_EMAIL"))
	privateKey := os.Getenv("GOOGLE_PRIVATE_KEY")

	slog.InfoContext(ctx, "Resolving Service Account credentials",
		"has_json", serviceAccountJSON != "",
		"file_path", serviceAccountFile,
		"has_client_email", clientEmail != "")

	switch {
	case serviceAccountJSON != "":
		return goauth.JWTConfigFromJSON([]byte(serviceAccountJSON), gsheet.SpreadsheetsScope)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return goauth.JWTConfigFromJSON(b, gsheet.SpreadsheetsScope)
	case clientEmail != "" && strings.TrimSpace(privateKey) != "":
		return JWTConfig(clientEmail, privateKey), nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY)")
	}
}

// JWTConfig builds service account credentials from an email and a PEM key.
// Keys pasted into environment variables usually carry literal "\n"
// sequences; those are turned back into newlines.
func JWTConfig(email, privateKey string) *jwt.Config {
	return &jwt.Config{
		Email:      email,
		PrivateKey: []byte(strings.ReplaceAll(privateKey, `\n`, "\n")),
		Scopes:     []string{gsheet.SpreadsheetsScope},
		TokenURL:   goauth.JWTTokenURL,
	}
}

// newSheetsService initializes a Sheets Service whose token refreshes and
// API calls share one pooled transport.
func newSheetsService(ctx context.Context, conf *jwt.Config) (*gsheet.Service, error) {
	base := newHTTPClientWithPooling()
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	client := conf.Client(authCtx)
	client.Timeout = base.Timeout

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"client_email", conf.Email,
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client optimized for Google Sheets API
// with connection pooling, proper timeouts, and keep-alive settings
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second, // the only timeout applied to store calls
	}
}

func (c *Client) Get(ctx context.Context, rng string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption(valueRenderOption).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, rng string, values [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) Append(ctx context.Context, table string, row []any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, table, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return nil
}

// toStrings keeps cell text as rendered; callers decide what to trim.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
