// Package cartaclient talks to the Carta REST API on behalf of CLI tools.
package cartaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/recipes"
	"github.com/cartacocktail/carta-backend/internal/users"
	"github.com/cartacocktail/carta-backend/pkg/types"
)

const errorBodyReadLimit int64 = 64 << 10

var errBaseURLRequired = errors.New("carta base url is required")

// APIError is returned for every non-2xx answer.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	return e.Message
}

// Client wraps the Carta API endpoints used by the import tooling.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenStore
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenStore sets where the bearer token is read from and written to.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		if store != nil {
			c.tokens = store
		}
	}
}

// NewClient builds a client for the API rooted at baseURL (e.g. http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     NewMemoryTokenStore(""),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Tokens exposes the store the client authenticates with.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

type loginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.UserDTO `json:"user"`
}

// Login authenticates and stores the access token.
func (c *Client) Login(ctx context.Context, email, password string) (*users.UserDTO, error) {
	var out loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(out.AccessToken); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout revokes the server session and forgets the token either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if clearErr := c.tokens.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

func (c *Client) Me(ctx context.Context) (*users.UserDTO, error) {
	var out users.UserDTO
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportCocktail downloads the portable document of one cocktail.
func (c *Client) ExportCocktail(ctx context.Context, id string) (*recipes.Document, error) {
	var out recipes.Document
	if err := c.doJSON(ctx, http.MethodGet, "/cocktails/"+url.PathEscape(id)+"/export", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PreviewImport(ctx context.Context, doc recipes.Document) (*recipes.Preview, error) {
	var out recipes.Preview
	if err := c.doJSON(ctx, http.MethodPost, "/cocktails/import/preview", doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfirmImport(ctx context.Context, req recipes.ConfirmRequest) (*cocktails.CocktailDTO, error) {
	var out cocktails.CocktailDTO
	if err := c.doJSON(ctx, http.MethodPost, "/cocktails/import/confirm", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadBackup streams the backup into w and returns the server-chosen file name.
func (c *Client) DownloadBackup(ctx context.Context, w io.Writer) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/backup/export", nil, "")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("read backup: %w", err)
	}
	return attachmentName(resp.Header.Get("Content-Disposition"), "carta-backup.json"), nil
}

// RestoreBackup uploads a backup file; the server replaces all bar data with it.
func (c *Client) RestoreBackup(ctx context.Context, filename string, r io.Reader) (map[string]int, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy backup: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/backup/import", &buf, form.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out map[string]int
	if err := decodeData(resp.Body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, method, path, reader, contentType)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeData(resp.Body, out)
}

// send performs the request and converts any non-2xx answer into *APIError.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		_ = c.tokens.Clear()
		return nil, &APIError{Status: resp.StatusCode, Code: "UNAUTHORIZED", Message: "Unauthorized"}
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	var envelope types.ErrorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	if json.Unmarshal(raw, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Details = envelope.Error.Details
		if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			apiErr.Message = msg
		}
	}
	return nil, apiErr
}

func decodeData(r io.Reader, out any) error {
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func attachmentName(header, fallback string) string {
	if header == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}
