package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/pkg/response"
)

var ErrBoardNotFound = errors.New("board not found")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the board CRUD endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) ListBoards(ctx context.Context) ([]domain.BoardSummary, error) {
	var boards []domain.BoardSummary
	if err := c.do(ctx, http.MethodGet, "/api/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) CreateBoard(ctx context.Context, name string) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, http.MethodPost, "/api/boards", &domain.CreateBoardRequest{Name: name}, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, http.MethodGet, "/api/boards/"+id, nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// ReplaceBoard overwrites the stored board with b.
func (c *Client) ReplaceBoard(ctx context.Context, b *domain.Board) error {
	req := &domain.UpdateBoardRequest{
		Name:        b.Name,
		Notes:       b.Notes,
		Connections: b.Connections,
	}
	return c.do(ctx, http.MethodPut, "/api/boards/"+b.ID, req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	envelope := response.Response{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && err != io.EOF {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrBoardNotFound
	}
	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	return nil
}
