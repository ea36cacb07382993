package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// APIResponse mirrors the service's JSON envelope.
type APIResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ExtractionData is the payload of a successful /extract call.
type ExtractionData struct {
	Tags         []string `json:"tags"`
	Count        int      `json:"count"`
	TemplateHash string   `json:"template_hash"`
}

// Client talks to a running service instance.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload POSTs a multipart form with a "file" part and optional extra
// fields to the given path. A nil fileData omits the file part entirely.
func (c *Client) Upload(path, filename string, fileData []byte, fields map[string]string) (*http.Response, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if fileData != nil {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(fileData); err != nil {
			return nil, err
		}
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.HTTP.Do(req)
}

// Extract uploads a document and decodes the extraction response.
func (c *Client) Extract(filename string, fileData []byte) (int, *APIResponse, *ExtractionData, error) {
	resp, err := c.Upload("/extract", filename, fileData, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return resp.StatusCode, nil, nil, fmt.Errorf("decode response: %w", err)
	}

	var data *ExtractionData
	if envelope.Success && len(envelope.Data) > 0 {
		data = &ExtractionData{}
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			return resp.StatusCode, &envelope, nil, fmt.Errorf("decode extraction data: %w", err)
		}
	}

	return resp.StatusCode, &envelope, data, nil
}

// Generate uploads a document with a mapping and returns the raw response
// body plus selected headers.
func (c *Client) Generate(filename string, fileData []byte, mapping map[string]string) (*http.Response, []byte, error) {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.Upload("/generate", filename, fileData, map[string]string{"mapping": string(mappingJSON)})
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}

	return resp, body, nil
}

// Health calls GET /health.
func (c *Client) Health() (int, *APIResponse, error) {
	resp, err := c.HTTP.Get(c.BaseURL + "/health")
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, &envelope, nil
}
