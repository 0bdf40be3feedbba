// Package api is the REST client for the marketplace chat endpoints: the
// room directory and paginated message history.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/smobile/chatclient/internal/types"
)

const (
	// DefaultHistoryLimit is applied when the caller passes a non-positive
	// page size.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit is the server-side page cap.
	MaxHistoryLimit = 200

	requestTimeout = 15 * time.Second
)

type ChatClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

func NewChatClient(baseURL, token string, logger *slog.Logger) *ChatClient {
	return &ChatClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		log:     logger,
	}
}

// Rooms fetches the full set of rooms the user belongs to, newest first.
func (c *ChatClient) Rooms(ctx context.Context) ([]types.Room, error) {
	var rooms []types.Room
	if err := c.get(ctx, "/api/v1/chat/rooms", nil, &rooms); err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}

	return rooms, nil
}

type historyResponse struct {
	RoomId   int             `json:"room_id"`
	Messages []types.Message `json:"messages"`
}

// History fetches the most recent messages for a room, oldest to newest.
func (c *ChatClient) History(ctx context.Context, roomId, limit int) ([]types.Message, error) {
	return c.history(ctx, roomId, 0, limit)
}

// HistoryBefore fetches messages older than beforeId, for paging back
// through a room's log.
func (c *ChatClient) HistoryBefore(ctx context.Context, roomId, beforeId, limit int) ([]types.Message, error) {
	return c.history(ctx, roomId, beforeId, limit)
}

func (c *ChatClient) history(ctx context.Context, roomId, beforeId, limit int) ([]types.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if beforeId > 0 {
		query.Set("before_id", strconv.Itoa(beforeId))
	}

	var resp historyResponse
	if err := c.get(ctx, "/api/v1/chat/history/"+strconv.Itoa(roomId), query, &resp); err != nil {
		return nil, fmt.Errorf("fetch history for room %d: %w", roomId, err)
	}

	return resp.Messages, nil
}

func (c *ChatClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	reqId := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqId)

	c.log.Debug("api request", "method", req.Method, "path", path, "request_id", reqId)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func statusError(resp *http.Response) *StatusError {
	// The server reports errors as {"detail": "..."}.
	var body struct {
		Detail string `json:"detail"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Detail != "" {
		msg = body.Detail
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}
