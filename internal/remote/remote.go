// Package remote is the HTTP client for the story-map service. It mirrors
// the service's JSON contract one-to-one and classifies failures into the
// three kinds the mutation engine reacts to (unauthorized, not-found,
// generic); everything else about recovery lives in the engine.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storymap-cli/internal/model"
)

type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindUnauthorized
	KindNotFound
)

// APIError is a non-2xx response. Detail carries the service's "detail"
// field when the body had one.
type APIError struct {
	Status int
	Kind   ErrorKind
	Detail string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Detail) != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == KindUnauthorized
}

func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == KindNotFound
}

type Client struct {
	BaseURL string
	Token   string

	// HTTPClient may be swapped in tests; nil means a default with a sane
	// timeout.
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:      strings.TrimSpace(token),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFrom(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiErrorFrom(resp *http.Response) error {
	kind := KindGeneric
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindUnauthorized
	case http.StatusNotFound:
		kind = KindNotFound
	}
	detail := ""
	var payload struct {
		Detail string `json:"detail"`
	}
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		if json.Unmarshal(b, &payload) == nil {
			detail = payload.Detail
		}
	}
	return &APIError{Status: resp.StatusCode, Kind: kind, Detail: detail}
}

// Login exchanges credentials for a bearer token (OAuth2 password form).
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", strings.TrimSpace(email))
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiErrorFrom(resp)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return "", errors.New("login response missing access_token")
	}
	return tok.AccessToken, nil
}

func (c *Client) GetProject(ctx context.Context, id int64) (model.Project, error) {
	var p model.Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/project/%d", id), nil, &p)
	return p, err
}

type ProjectList struct {
	Items []model.ProjectSummary `json:"items"`
	Total int                    `json:"total"`
	Skip  int                    `json:"skip"`
	Limit int                    `json:"limit"`
}

func (c *Client) ListProjects(ctx context.Context, skip, limit int) (ProjectList, error) {
	var out ProjectList
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects?skip=%d&limit=%d", skip, limit), nil, &out)
	return out, err
}

type GenerateResult struct {
	Status      string `json:"status"`
	ProjectID   int64  `json:"project_id"`
	ProjectName string `json:"project_name"`
}

// GenerateMap asks the service to build a new map from requirements text.
// Generation runs server-side (AI); this client only waits for the result.
func (c *Client) GenerateMap(ctx context.Context, text string, skipEnhancement bool) (GenerateResult, error) {
	body := map[string]any{
		"text":             text,
		"skip_enhancement": skipEnhancement,
	}
	var out GenerateResult
	err := c.do(ctx, http.MethodPost, "/generate-map", body, &out)
	return out, err
}

type activityBody struct {
	ProjectID int64  `json:"project_id,omitempty"`
	Title     string `json:"title,omitempty"`
}

func (c *Client) CreateActivity(ctx context.Context, projectID int64, title string) (model.Activity, error) {
	var out model.Activity
	err := c.do(ctx, http.MethodPost, "/activity", activityBody{ProjectID: projectID, Title: title}, &out)
	return out, err
}

func (c *Client) UpdateActivity(ctx context.Context, id int64, title string) (model.Activity, error) {
	var out model.Activity
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/activity/%d", id), activityBody{Title: title}, &out)
	return out, err
}

func (c *Client) DeleteActivity(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/activity/%d", id), nil, nil)
}

type taskBody struct {
	ActivityID int64  `json:"activity_id,omitempty"`
	Title      string `json:"title,omitempty"`
}

func (c *Client) CreateTask(ctx context.Context, activityID int64, title string) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPost, "/task", taskBody{ActivityID: activityID, Title: title}, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, title string) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/task/%d", id), taskBody{Title: title}, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/task/%d", id), nil, nil)
}

func (c *Client) MoveTask(ctx context.Context, id int64, position int) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/task/%d/move", id), map[string]int{"position": position}, &out)
	return out, err
}

// CreateStoryRequest mirrors the service's StoryCreate schema.
type CreateStoryRequest struct {
	TaskID             int64    `json:"task_id"`
	ReleaseID          *int64   `json:"release_id,omitempty"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Priority           string   `json:"priority,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
}

func (c *Client) CreateStory(ctx context.Context, req CreateStoryRequest) (model.Story, error) {
	var out model.Story
	err := c.do(ctx, http.MethodPost, "/story", req, &out)
	return out, err
}

// UpdateStoryRequest mirrors StoryUpdate; nil fields are omitted so the
// service treats them as "leave unchanged".
type UpdateStoryRequest struct {
	Title              *string  `json:"title,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Priority           *string  `json:"priority,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
}

func (c *Client) UpdateStory(ctx context.Context, id int64, req UpdateStoryRequest) (model.Story, error) {
	var out model.Story
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/story/%d", id), req, &out)
	return out, err
}

func (c *Client) DeleteStory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/story/%d", id), nil, nil)
}

type moveStoryBody struct {
	TaskID    int64  `json:"task_id"`
	ReleaseID *int64 `json:"release_id"`
	Position  int    `json:"position"`
}

func (c *Client) MoveStory(ctx context.Context, id, taskID int64, releaseID *int64, position int) (model.Story, error) {
	var out model.Story
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/story/%d/move", id),
		moveStoryBody{TaskID: taskID, ReleaseID: releaseID, Position: position}, &out)
	return out, err
}

func (c *Client) UpdateStoryStatus(ctx context.Context, id int64, status model.StoryStatus) (model.Story, error) {
	var out model.Story
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/story/%d/status", id),
		map[string]model.StoryStatus{"status": status}, &out)
	return out, err
}
