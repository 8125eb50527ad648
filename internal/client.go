package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// StoreClient talks to the SilverCare backend. All calls are synchronous
// request/response; callers are responsible for exclusivity guards, the
// client never queues or retries.
type StoreClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewStoreClient creates a client for the given backend base URL.
func NewStoreClient(baseURL string, timeout time.Duration) *StoreClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StoreClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// chatTurnRequest is the body for POST /chat/message.
type chatTurnRequest struct {
	Input       string         `json:"input"`
	UserID      string         `json:"userId"`
	ChatHistory []HistoryEntry `json:"chatHistory"`
	SessionID   string         `json:"sessionId"`
}

// LoadSessionsResponse is the payload of GET /loadChat.
type LoadSessionsResponse struct {
	Success          bool          `json:"success"`
	Sessions         []ChatSession `json:"sessions"`
	CurrentSessionID string        `json:"currentSessionId"`
	SessionCounter   int           `json:"sessionCounter"`
	Error            string        `json:"error,omitempty"`
}

type createSessionRequest struct {
	SessionName string `json:"sessionName"`
	UserID      string `json:"userId"`
}

type createSessionResponse struct {
	Success bool         `json:"success"`
	Session *ChatSession `json:"session"`
	Error   string       `json:"error,omitempty"`
}

type deleteSessionResponse struct {
	Success           bool          `json:"success"`
	RemainingSessions []ChatSession `json:"remainingSessions"`
	Error             string        `json:"error,omitempty"`
}

type saveStateRequest struct {
	Sessions         []ChatSession `json:"sessions"`
	CurrentSessionID string        `json:"currentSessionId"`
	SessionCounter   int           `json:"sessionCounter"`
	UserID           string        `json:"userId"`
}

type remindersResponse struct {
	Success   bool       `json:"success"`
	Reminders []Reminder `json:"reminders"`
	Error     string     `json:"error,omitempty"`
}

// FormatReminderResponse is the payload of POST /format-reminder.
type FormatReminderResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Reminders []Reminder `json:"reminders,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// SendChatTurn posts one user utterance with its sanitized history and
// returns the backend's turn response.
func (c *StoreClient) SendChatTurn(input, userID string, history []HistoryEntry, sessionID string) (*ChatTurnResponse, error) {
	if history == nil {
		history = []HistoryEntry{}
	}
	body := chatTurnRequest{Input: input, UserID: userID, ChatHistory: history, SessionID: sessionID}
	var resp ChatTurnResponse
	if err := c.doJSON("send", http.MethodPost, "/chat/message", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoadSessions fetches all sessions plus the active pointer and counter.
func (c *StoreClient) LoadSessions(userID string) (*LoadSessionsResponse, error) {
	path := "/loadChat?userId=" + url.QueryEscape(userID)
	var resp LoadSessionsResponse
	if err := c.doJSON("load", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveSessions uploads a full snapshot of the client's session state.
func (c *StoreClient) SaveSessions(sessions []ChatSession, currentID string, counter int, userID string) error {
	body := saveStateRequest{Sessions: sessions, CurrentSessionID: currentID, SessionCounter: counter, UserID: userID}
	return c.doJSON("save", http.MethodPut, "/saveChat", body, nil)
}

// CreateSession asks the store to create a named session. The store
// generates the session's ID and timestamps.
func (c *StoreClient) CreateSession(name, userID string) (*ChatSession, error) {
	var resp createSessionResponse
	err := c.doJSON("create", http.MethodPost, "/createChat", createSessionRequest{SessionName: name, UserID: userID}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Session == nil {
		return nil, &ServerError{Op: "create", Status: http.StatusOK, Body: resp.Error}
	}
	return resp.Session, nil
}

// UpdateMessages upserts a session's full message array. An empty array is
// refused so a session switched away from before its first load can never
// wipe the server-side history.
func (c *StoreClient) UpdateMessages(sessionID string, messages []Message, userID string) error {
	if len(messages) == 0 {
		return &ValidationError{Field: "messages", Reason: "refusing to overwrite history with an empty array"}
	}
	body := struct {
		Messages []Message `json:"messages"`
		UserID   string    `json:"userId"`
	}{messages, userID}
	path := fmt.Sprintf("/updateMessages/%s/messages", url.PathEscape(sessionID))
	return c.doJSON("update-messages", http.MethodPut, path, body, nil)
}

// DeleteSession removes a session and returns the store's authoritative
// remaining set.
func (c *StoreClient) DeleteSession(sessionID, userID string) ([]ChatSession, error) {
	path := fmt.Sprintf("/deleteChat/%s?userId=%s", url.PathEscape(sessionID), url.QueryEscape(userID))
	var resp deleteSessionResponse
	if err := c.doJSON("delete", http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &StoreInconsistencyError{Kind: "session", ID: sessionID}
	}
	if resp.RemainingSessions == nil {
		resp.RemainingSessions = []ChatSession{}
	}
	return resp.RemainingSessions, nil
}

// TouchActivity bumps a session's lastActivity timestamp.
func (c *StoreClient) TouchActivity(sessionID, userID string) error {
	body := struct {
		UserID string `json:"userId"`
	}{userID}
	path := fmt.Sprintf("/updateActivity/%s/activity", url.PathEscape(sessionID))
	return c.doJSON("touch", http.MethodPatch, path, body, nil)
}

// FetchReminders returns the user's reminders, unsorted and undeduplicated.
func (c *StoreClient) FetchReminders(userID string) ([]Reminder, error) {
	path := fmt.Sprintf("/reminders?userId=%s&timestamp=%d", url.QueryEscape(userID), time.Now().UnixMilli())
	var resp remindersResponse
	if err := c.doJSON("reminders", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ServerError{Op: "reminders", Status: http.StatusOK, Body: resp.Error}
	}
	return resp.Reminders, nil
}

// AddReminder stores a new reminder.
func (c *StoreClient) AddReminder(r Reminder, userID string) error {
	body := struct {
		Title  string `json:"title"`
		Time   string `json:"time"`
		Date   string `json:"date"`
		UserID string `json:"userId"`
	}{r.Title, r.Time, r.Date, userID}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	if err := c.doJSON("add-reminder", http.MethodPost, "/reminder-data", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &ServerError{Op: "add-reminder", Status: http.StatusOK, Body: resp.Error}
	}
	return nil
}

// DeleteReminder removes a reminder by ID.
func (c *StoreClient) DeleteReminder(id, userID string) error {
	body := struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
	}{id, userID}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	if err := c.doJSON("delete-reminder", http.MethodPost, "/delete-reminder", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &StoreInconsistencyError{Kind: "reminder", ID: id}
	}
	return nil
}

// FormatReminder sends a natural-language utterance to the voice-to-reminder
// endpoint, which extracts and stores structured reminders from it.
func (c *StoreClient) FormatReminder(input, userID string) (*FormatReminderResponse, error) {
	body := struct {
		Input  string `json:"input"`
		UserID string `json:"userId"`
	}{input, userID}
	var resp FormatReminderResponse
	if err := c.doJSON("format-reminder", http.MethodPost, "/format-reminder", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON performs one request and decodes the JSON response into out when
// out is non-nil. Failures are classified into the error taxonomy at this
// boundary: connection failures become TransportError, non-2xx statuses
// become ServerError.
func (c *StoreClient) doJSON(op, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	fullURL := c.BaseURL + path
	req, err := http.NewRequest(method, fullURL, reqBody)
	if err != nil {
		return &TransportError{Op: op, URL: fullURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, URL: fullURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &ServerError{Op: op, Status: resp.StatusCode, Body: errResp.Error}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &ServerError{Op: op, Status: resp.StatusCode, Body: "malformed response: " + err.Error()}
		}
	}
	return nil
}
