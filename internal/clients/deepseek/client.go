package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

// taskContentRecommendation selects the recommendation task on the inference
// service; other tasks (interest analysis, summaries) are not used here.
const taskContentRecommendation = "content_recommendation"

// UserHistory is the interaction snapshot sent to the inference service,
// serialized under the "user_history" key of the request body.
type UserHistory struct {
	ViewedStories    []uuid.UUID `json:"viewed_stories"`
	ViewedModules    []uuid.UUID `json:"viewed_modules"`
	CompletedModules []uuid.UUID `json:"completed_modules"`
	LikedStories     []uuid.UUID `json:"liked_stories"`
	RecentActivities []string    `json:"recent_activities"`
}

// Suggestion is one entry of the service's "recommendations" array. The id
// field that applies depends on the type tag.
type Suggestion struct {
	Type     string    `json:"type"`
	StoryID  uuid.UUID `json:"story_id,omitempty"`
	ModuleID uuid.UUID `json:"module_id,omitempty"`
	Score    float64   `json:"score,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Ref resolves the suggestion to a content reference. ok is false when the
// type tag is unknown or the matching id is missing; callers drop those
// entries.
func (s Suggestion) Ref() (types.ContentRef, bool) {
	t := types.ContentType(s.Type)
	if !t.Valid() {
		return types.ContentRef{}, false
	}
	id := s.StoryID
	if t == types.ContentTypeModule {
		id = s.ModuleID
	}
	if id == uuid.Nil {
		return types.ContentRef{}, false
	}
	return types.ContentRef{Type: t, ID: id}, true
}

type suggestRequest struct {
	UserHistory UserHistory `json:"user_history"`
	Limit       int         `json:"limit"`
	Task        string      `json:"task"`
}

type suggestResponse struct {
	Recommendations []Suggestion `json:"recommendations"`
}

// Client fetches recommendation suggestions from the DeepSeek service. The
// client is a best-effort enrichment source: callers treat every error as
// "no external suggestions" and carry on.
type Client interface {
	Enabled() bool
	Suggest(ctx context.Context, history UserHistory, limit int) ([]Suggestion, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient reads DEEPSEEK_API_URL and DEEPSEEK_API_KEY from the environment.
// A missing key yields a disabled client rather than an error so the rest of
// the engine runs without the external source.
func NewClient(log *logger.Logger) Client {
	apiKey := strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY"))

	baseURL := strings.TrimSpace(os.Getenv("DEEPSEEK_API_URL"))
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := 30
	if v := os.Getenv("DEEPSEEK_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &client{
		log:        log.With("service", "DeepseekClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(log *logger.Logger, baseURL, apiKey string, timeout time.Duration) Client {
	return &client{
		log:        log.With("service", "DeepseekClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) Enabled() bool {
	return c.apiKey != ""
}

// APIError reports a non-2xx response from the suggestion service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("deepseek http %d: %s", e.StatusCode, e.Body)
}

func (c *client) Suggest(ctx context.Context, history UserHistory, limit int) ([]Suggestion, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("deepseek client disabled: missing DEEPSEEK_API_KEY")
	}

	payload := suggestRequest{
		UserHistory: history,
		Limit:       limit,
		Task:        taskContentRecommendation,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recommendations", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out suggestResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("deepseek decode: %w", err)
	}
	return out.Recommendations, nil
}
