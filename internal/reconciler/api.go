package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"polling_station/internal/models"
	"polling_station/internal/response"
)

// APIError ответ сервера с кодом ошибки.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// API HTTP-клиент эндпоинтов очередей.
type API struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Login получает токен по email и паролю и сохраняет его для следующих запросов.
func (a *API) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var tok response.TokenResponse
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", body, &tok); err != nil {
		return err
	}
	a.Token = tok.Token
	return nil
}

// ListQueues читает полный снимок очередей.
func (a *API) ListQueues(ctx context.Context) ([]models.Queue, error) {
	var queues []models.Queue
	if err := a.do(ctx, http.MethodGet, "/api/queues", nil, &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

// UpdateQueue изменяет очередь помещения и возвращает запись после изменения.
func (a *API) UpdateQueue(ctx context.Context, room, currentQueue, estimatedWaitTime int) (models.Queue, error) {
	body := map[string]int{
		"roomNumber":        room,
		"currentQueue":      currentQueue,
		"estimatedWaitTime": estimatedWaitTime,
	}
	var updated models.Queue
	if err := a.do(ctx, http.MethodPost, "/api/queues/update", body, &updated); err != nil {
		return models.Queue{}, err
	}
	return updated, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e response.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Message}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
