// Package apiclient plays a live game against a remote server over the REST
// API and the session change stream.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"

	"github.com/gorilla/websocket"
)

var ErrServiceUnavailable = errors.New("quiz service unavailable")

const tokenHeader = "X-Participant-Token"

// APIError is a non-2xx answer. It unwraps to the domain sentinel named by
// Code, so errors.Is and game.IsPermanent work across the wire.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return game.FromCode(e.Code)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu    sync.RWMutex
	token string
}

var (
	_ live.PlayerBackend = (*Client)(nil)
	_ realtime.Notifier  = (*Client)(nil)
)

func New(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// SetToken sets the participant token sent on every request. JoinSession sets
// it automatically.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) FindSessionByPin(ctx context.Context, pin string) (*models.Session, error) {
	query := url.Values{}
	query.Set("pin", game.NormalizePin(pin))

	var payload struct {
		Session *models.Session `json:"session"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/play/sessions?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	if payload.Session == nil {
		return nil, game.ErrSessionNotFound
	}
	return payload.Session, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID uint) (*models.Session, error) {
	var session models.Session
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/play/sessions/%d", sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// JoinSession joins as nickname. userID is not sent: accounts join their own
// sessions through the host API.
func (c *Client) JoinSession(ctx context.Context, sessionID uint, nickname string, _ *uint) (*models.JoinResult, error) {
	body := map[string]any{"session_id": sessionID, "nickname": nickname}

	var result models.JoinResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/play/join", body, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

func (c *Client) SessionQuestions(ctx context.Context, sessionID uint) ([]models.PublicQuestion, error) {
	var questions []models.PublicQuestion
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/play/sessions/%d/questions", sessionID), nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// The participant calls below act on the token's participant; the id
// argument only satisfies live.PlayerBackend.

func (c *Client) LeaveSession(ctx context.Context, _ uint) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/play/leave", nil, nil)
}

func (c *Client) UpsertResponse(ctx context.Context, _ uint, patch models.ResponsePatch) (*models.Response, error) {
	var resp models.Response
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/play/responses", patch, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) FinishParticipant(ctx context.Context, _ uint) (*live.FinishOutcome, error) {
	var outcome live.FinishOutcome
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/play/finish", nil, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (c *Client) ComputeScore(ctx context.Context, _ uint) (*models.Participant, error) {
	var participant models.Participant
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/play/score", nil, &participant); err != nil {
		return nil, err
	}
	return &participant, nil
}

func (c *Client) GetLeaderboard(ctx context.Context, sessionID uint) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/play/sessions/%d/leaderboard", sessionID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type changeMessage struct {
	Type string          `json:"type"`
	Data realtime.Change `json:"data"`
}

// Subscribe opens the session's change stream. The channel closes when the
// connection drops; callers resubscribe and re-read state.
func (c *Client) Subscribe(ctx context.Context, table string, sessionID uint) (*realtime.Subscription, error) {
	streamURL, err := c.streamURL(table, sessionID)
	if err != nil {
		return nil, err
	}
	conn, _, err := c.dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	ch := make(chan realtime.Change, 16)
	var once sync.Once
	stop := func() { once.Do(func() { conn.Close() }) }
	stopAfter := context.AfterFunc(ctx, stop)

	go func() {
		defer close(ch)
		defer stopAfter()
		for {
			var msg changeMessage
			if err := conn.ReadJSON(&msg); err != nil {
				var closeErr *websocket.CloseError
				if !errors.As(err, &closeErr) && ctx.Err() == nil {
					log.Printf("apiclient: session %d stream: %v", sessionID, err)
				}
				return
			}
			if msg.Type != "change" {
				continue
			}
			select {
			case ch <- msg.Data:
			default:
				// The poll ticker catches up on anything dropped here.
			}
		}
	}()

	return realtime.NewSubscription(ch, stop), nil
}

func (c *Client) streamURL(table string, sessionID uint) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/ws/session/%d", sessionID)
	if table != "" && table != realtime.AllTables {
		u.RawQuery = url.Values{"table": {table}}.Encode()
	}
	return u.String(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		request.Header.Set(tokenHeader, token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		}
		if strings.TrimSpace(apiErr.Message) == "" {
			apiErr.Message = response.Status
		}
		if response.StatusCode >= http.StatusInternalServerError && apiErr.Code == "" {
			return fmt.Errorf("%w: %s", ErrServiceUnavailable, apiErr.Message)
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
