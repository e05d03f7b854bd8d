// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mdelaney/nutri-tui/internal/model"
)

// Credentials is the login/register request payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginData is the payload of a successful login envelope.
type loginData struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Register creates a new account. The server responds with a bare
// success envelope; the caller logs in separately.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	_, err := c.do(ctx, http.MethodPost, "/register", creds)
	return err
}

// Login authenticates and establishes the client's session on success.
func (c *Client) Login(ctx context.Context, creds Credentials) (model.User, error) {
	env, err := c.do(ctx, http.MethodPost, "/login", creds)
	if err != nil {
		return model.User{}, err
	}
	var data loginData
	if err := env.decodeData(&data); err != nil {
		return model.User{}, err
	}
	if data.Token == "" {
		return model.User{}, fmt.Errorf("%w: login envelope has no token", ErrBadResponse)
	}
	if err := c.session.Begin(data.Token, data.User); err != nil {
		return model.User{}, fmt.Errorf("persist session: %w", err)
	}
	return data.User, nil
}

// MyProfile fetches the authenticated user's profile.
func (c *Client) MyProfile(ctx context.Context) (model.Profile, error) {
	env, err := c.do(ctx, http.MethodGet, "/my_profile", nil)
	if err != nil {
		return model.Profile{}, err
	}
	var p model.Profile
	if err := env.decodeData(&p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// UpdateProfile replaces the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, p model.Profile) error {
	_, err := c.do(ctx, http.MethodPost, "/profile_edit", p)
	return err
}

// InsertLog records one food intake entry.
func (c *Client) InsertLog(ctx context.Context, entry model.FoodEntry) error {
	_, err := c.do(ctx, http.MethodPost, "/insert_log", entry)
	return err
}

// UpdateLog modifies an existing intake entry by its id.
func (c *Client) UpdateLog(ctx context.Context, entry model.FoodEntry) error {
	_, err := c.do(ctx, http.MethodPost, "/update_log", entry)
	return err
}

// DeleteLog removes an intake entry by its id.
func (c *Client) DeleteLog(ctx context.Context, id int) error {
	_, err := c.do(ctx, http.MethodPost, "/delete_log", map[string]int{"id": id})
	return err
}

// RetrieveLog lists the intake entries for one date (YYYY-MM-DD).
func (c *Client) RetrieveLog(ctx context.Context, date string) ([]model.FoodEntry, error) {
	env, err := c.do(ctx, http.MethodGet, "/retrieve_log?date="+url.QueryEscape(date), nil)
	if err != nil {
		return nil, err
	}
	var entries []model.FoodEntry
	if err := env.decodeData(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DailySummary returns the nutrient totals for one date.
func (c *Client) DailySummary(ctx context.Context, date string) (model.DailySummary, error) {
	env, err := c.do(ctx, http.MethodGet, "/dv_summation?date="+url.QueryEscape(date), nil)
	if err != nil {
		return model.DailySummary{}, err
	}
	var s model.DailySummary
	if err := env.decodeData(&s); err != nil {
		return model.DailySummary{}, err
	}
	return s, nil
}

// DailyNeeds returns the computed target intake for the current profile.
func (c *Client) DailyNeeds(ctx context.Context) (model.DailyNeeds, error) {
	env, err := c.do(ctx, http.MethodGet, "/daily_needs", nil)
	if err != nil {
		return model.DailyNeeds{}, err
	}
	var n model.DailyNeeds
	if err := env.decodeData(&n); err != nil {
		return model.DailyNeeds{}, err
	}
	return n, nil
}

// History7Days returns the rolling week of daily totals plus needs.
func (c *Client) History7Days(ctx context.Context) (model.HistoryReport, error) {
	env, err := c.do(ctx, http.MethodGet, "/history_7days", nil)
	if err != nil {
		return model.HistoryReport{}, err
	}
	var r model.HistoryReport
	if err := env.decodeData(&r); err != nil {
		return model.HistoryReport{}, err
	}
	return r, nil
}

// chatRequest is the chat endpoint payload: the new message plus the
// prior conversation, so the server holds no conversation state.
type chatRequest struct {
	Message string          `json:"message"`
	History []model.Message `json:"history"`
}

// chatData carries the possible chat payloads. A synchronous reply
// fills Message; a deferred one fills TaskID.
type chatData struct {
	Message string `json:"message,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
}

// ChatOutcome is the result of sending one chat message.
type ChatOutcome struct {
	// Reply is the assistant text when the server answered
	// synchronously.
	Reply string

	// TaskID identifies a deferred reply to poll for. Set exactly when
	// Deferred is true.
	TaskID string

	// Deferred reports whether the reply must be polled for.
	Deferred bool
}

// SendChat submits one message with the prior history and returns
// either the reply or a task to poll.
func (c *Client) SendChat(ctx context.Context, message string, history []model.Message) (ChatOutcome, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/chat", chatRequest{Message: message, History: history})
	if err != nil {
		return ChatOutcome{}, err
	}
	var data chatData
	if err := env.decodeData(&data); err != nil {
		return ChatOutcome{}, err
	}
	if env.Code == CodeDeferred {
		if data.TaskID == "" {
			return ChatOutcome{}, fmt.Errorf("%w: deferred envelope has no task_id", ErrBadResponse)
		}
		return ChatOutcome{TaskID: data.TaskID, Deferred: true}, nil
	}
	return ChatOutcome{Reply: data.Message}, nil
}

// TaskStatus is one observation of a deferred chat task.
type TaskStatus struct {
	// Done reports whether the task has produced its reply.
	Done bool

	// Reply is the assistant text, set once Done is true.
	Reply string
}

// ChatTask checks a deferred chat task. A 202 envelope means the task
// is still running; 200 carries the finished reply.
func (c *Client) ChatTask(ctx context.Context, taskID string) (TaskStatus, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/chat/task/"+url.PathEscape(taskID), nil)
	if err != nil {
		return TaskStatus{}, err
	}
	if env.Code == CodeDeferred {
		return TaskStatus{}, nil
	}
	var data chatData
	if err := env.decodeData(&data); err != nil {
		return TaskStatus{}, err
	}
	return TaskStatus{Done: true, Reply: data.Message}, nil
}

// historyData wraps the server-side chat transcript payload.
type historyData struct {
	History []model.Message `json:"history"`
}

// ChatHistory fetches the transcript stored on the server.
func (c *Client) ChatHistory(ctx context.Context) ([]model.Message, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/chat/history", nil)
	if err != nil {
		return nil, err
	}
	var data historyData
	if err := env.decodeData(&data); err != nil {
		return nil, err
	}
	return data.History, nil
}

// SaveChatHistory replaces the server-side transcript with the given
// full sequence.
func (c *Client) SaveChatHistory(ctx context.Context, history []model.Message) error {
	_, err := c.do(ctx, http.MethodPost, "/api/chat/history", historyData{History: history})
	return err
}

// ClearChatHistory deletes the server-side transcript.
func (c *Client) ClearChatHistory(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/chat/history", nil)
	return err
}
