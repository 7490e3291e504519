package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/listendoctor/go-integration-demo/internal/api"
)

const requestTimeout = 30 * time.Second

type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL, apiKey string) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) Authenticate(ctx context.Context, clientID, clientSecret, doctorID string) error {
	body := map[string]any{
		"client_id":     clientID,
		"client_secret": clientSecret,
		"grant_type":    "client_credentials",
		"doctor":        doctorID,
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "iam", false, body, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) PublicTemplates(ctx context.Context) (map[string][]api.Template, error) {
	var resp map[string][]api.Template
	err := c.doJSON(ctx, http.MethodGet, "templates/public", true, nil, &resp)
	return resp, err
}

func (c *HTTPClient) UserTemplates(ctx context.Context) (map[string][]api.Template, error) {
	var resp map[string][]api.Template
	err := c.doJSON(ctx, http.MethodGet, "templates", true, nil, &resp)
	return resp, err
}

func (c *HTTPClient) AddTemplate(ctx context.Context, t api.Template) (api.TemplateResponse, error) {
	body := map[string]any{
		"name":       t.Name,
		"template":   t.Template,
		"speciality": t.Speciality,
		"category":   t.Category,
	}
	var resp api.TemplateResponse
	err := c.doJSON(ctx, http.MethodPost, "templates", true, body, &resp)
	return resp, err
}

func (c *HTTPClient) UpdateTemplate(ctx context.Context, t api.Template) (api.TemplateResponse, error) {
	body := map[string]any{
		"guid":       t.GUID,
		"name":       t.Name,
		"template":   t.Template,
		"speciality": t.Speciality,
		"category":   t.Category,
	}
	var resp api.TemplateResponse
	err := c.doJSON(ctx, http.MethodPut, "templates", true, body, &resp)
	return resp, err
}

func (c *HTTPClient) Template(ctx context.Context, guid string) (api.Template, error) {
	var resp api.Template
	err := c.doJSON(ctx, http.MethodGet, "templates/"+guid, true, nil, &resp)
	return resp, err
}

func (c *HTTPClient) DeleteTemplate(ctx context.Context, guid string) (api.TemplateDeletedResponse, error) {
	var resp api.TemplateDeletedResponse
	err := c.doJSON(ctx, http.MethodDelete, "templates/"+guid, true, nil, &resp)
	return resp, err
}

func (c *HTTPClient) Specialities(ctx context.Context) (map[string][]api.Speciality, error) {
	var resp map[string][]api.Speciality
	err := c.doJSON(ctx, http.MethodGet, "specialities", true, nil, &resp)
	return resp, err
}

func (c *HTTPClient) Speciality(ctx context.Context, code int) (api.Speciality, error) {
	var resp api.Speciality
	err := c.doJSON(ctx, http.MethodGet, "specialities/"+strconv.Itoa(code), true, nil, &resp)
	return resp, err
}

func (c *HTTPClient) ProcessAudio(ctx context.Context, input api.ProcessAudioInput) (api.SummaryTranscriptionResponse, error) {
	fields := map[string]string{
		"prompt":     input.Prompt,
		"language":   input.Language,
		"speciality": strconv.Itoa(input.Speciality),
		"category":   input.Category,
		"datetime":   input.DateTime,
	}
	var resp api.SummaryTranscriptionResponse
	err := c.doMultipart(ctx, "process/audio", fields, input.FilePath, &resp)
	return resp, err
}

func (c *HTTPClient) ProcessLaboratory(ctx context.Context, filePath, language string) (api.SummaryResponse, error) {
	fields := map[string]string{
		"language": language,
	}
	var resp api.SummaryResponse
	err := c.doMultipart(ctx, "process/laboratory", fields, filePath, &resp)
	return resp, err
}

func (c *HTTPClient) ProcessAgain(ctx context.Context, input api.ProcessAgainInput) (api.SummaryResponse, error) {
	body := map[string]any{
		"data":       input.Data,
		"prompt":     input.Prompt,
		"language":   input.Language,
		"speciality": input.Speciality,
		"datetime":   input.DateTime,
	}
	var resp api.SummaryResponse
	err := c.doJSON(ctx, http.MethodPost, "process/again", true, body, &resp)
	return resp, err
}

func (c *HTTPClient) endpointURL(endpoint string) string {
	return c.baseURL.JoinPath("v1", endpoint).String()
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, withToken bool, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(endpoint), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, withToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, endpoint, out)
}

func (c *HTTPClient) doMultipart(ctx context.Context, endpoint string, fields map[string]string, filePath string, out any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("write multipart field %s: %w", key, err)
		}
	}

	part, err := writer.CreatePart(filePartHeader(filePath))
	if err != nil {
		return fmt.Errorf("create multipart file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(endpoint), &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, true)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(req, endpoint, out)
}

func filePartHeader(filePath string) textproto.MIMEHeader {
	contentType := "application/octet-stream"
	if detected, err := mimetype.DetectFile(filePath); err == nil {
		contentType = detected.String()
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(filePath)))
	header.Set("Content-Type", contentType)
	return header
}

func (c *HTTPClient) setHeaders(req *http.Request, withToken bool) {
	req.Header.Set("x-api-key", c.apiKey)
	if withToken {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func (c *HTTPClient) send(req *http.Request, endpoint string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &api.StatusError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
