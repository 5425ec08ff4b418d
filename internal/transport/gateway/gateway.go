package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
)

const defaultRequestTimeout = 30 * time.Second

// Client implements domain.Transport against the chat gateway's HTTP API.
// Document uploads get a longer timeout since they carry the artifact bytes.
type Client struct {
	baseURL string
	token   string

	httpClient   *http.Client
	uploadClient *http.Client
}

func New(baseURL, token string, uploadTimeout time.Duration) *Client {
	if uploadTimeout <= 0 {
		uploadTimeout = 10 * time.Minute
	}
	return &Client{
		baseURL:      baseURL,
		token:        token,
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
	}
}

type messageResponse struct {
	MessageID string `json:"message_id"`
}

func (c *Client) SendText(ctx context.Context, conversationID, text string) (string, error) {
	var out messageResponse
	err := c.postJSON(ctx, "/messages/text", map[string]any{
		"conversation_id": conversationID,
		"text":            text,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("send text: %w", err)
	}
	return out.MessageID, nil
}

func (c *Client) SendPoll(ctx context.Context, conversationID, title string, options []string) (string, error) {
	var out messageResponse
	err := c.postJSON(ctx, "/messages/poll", map[string]any{
		"conversation_id":  conversationID,
		"title":            title,
		"options":          options,
		"selectable_count": 1,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("send poll: %w", err)
	}
	return out.MessageID, nil
}

func (c *Client) EditText(ctx context.Context, conversationID, messageID, text string) error {
	err := c.postJSON(ctx, "/messages/edit", map[string]any{
		"conversation_id": conversationID,
		"message_id":      messageID,
		"text":            text,
	}, nil)
	if err != nil {
		return fmt.Errorf("edit text: %w", err)
	}
	return nil
}

func (c *Client) SendImage(ctx context.Context, conversationID, imageURL, caption string) error {
	err := c.postJSON(ctx, "/messages/image", map[string]any{
		"conversation_id": conversationID,
		"image_url":       imageURL,
		"caption":         caption,
	}, nil)
	if err != nil {
		return fmt.Errorf("send image: %w", err)
	}
	return nil
}

// SendDocument uploads the artifact as multipart form data: a "meta" JSON
// field plus the "file" part.
func (c *Client) SendDocument(ctx context.Context, conversationID string, doc domain.Document) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	meta, err := json.Marshal(map[string]string{
		"conversation_id": conversationID,
		"filename":        doc.Filename,
		"mime_type":       doc.MimeType,
		"caption":         doc.Caption,
	})
	if err != nil {
		return err
	}
	if err := mw.WriteField("meta", string(meta)); err != nil {
		return err
	}

	fw, err := mw.CreateFormFile("file", doc.Filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(doc.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages/document", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send document: %w: %d", domain.ErrBadStatus, resp.StatusCode)
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", domain.ErrBadStatus, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
