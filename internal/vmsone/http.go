package vmsone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"go.uber.org/zap"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// FormField is one scalar multipart field.
type FormField struct {
	Name  string
	Value string
}

// FilePart is a file attached to a multipart request.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// doPostJSON sends requestBody as JSON and decodes the response. An empty token
// sends no Authorization header.
func doPostJSON(ctx context.Context, c *Client, token, endpoint string, requestBody any) (*Response, error) {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL(endpoint), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, token, endpoint)
}

// doPostMultipart sends fields and an optional file as multipart/form-data.
func doPostMultipart(ctx context.Context, c *Client, token, endpoint string, fields []FormField, file *FilePart) (*Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("could not write field %s: %w", f.Name, err)
		}
	}

	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(file.Field), quoteEscaper.Replace(file.Filename)))
		header.Set("Content-Type", file.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("could not create form file: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("could not copy file data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL(endpoint), &body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, token, endpoint)
}

// do sends req and decodes a 2xx body. Network failures wrap kerrors.ErrTransport,
// other statuses return *kerrors.ServerError.
func (c *Client) do(req *http.Request, token, endpoint string) (*Response, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from configured base via resolveURL
	if err != nil {
		return nil, kerrors.Transport(fmt.Errorf("could not send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &kerrors.ServerError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
		c.logger.Warn("VMSONE request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", serr.Message),
		)
		return nil, serr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, kerrors.Transport(fmt.Errorf("could not read response body: %w", err))
	}

	result := &Response{}
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, kerrors.Transport(fmt.Errorf("could not unmarshal response: %w", err))
	}

	c.logger.Debug("VMSONE request succeeded", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
	return result, nil
}
