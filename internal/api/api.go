package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprinterview/internal/interview"
)

var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrNoQuestions       = errors.New("interview has no questions")
)

const requestIDHeader = "X-Request-ID"

// Interview is the payload served by the backend and accepted by LoadFile.
type Interview struct {
	ID        string               `json:"interviewId"`
	Questions []interview.Question `json:"questions"`
}

type Config struct {
	BaseURL    string
	Token      string // bearer token, optional
	Timeout    time.Duration
	RetryCount int
}

// Client talks to the interview backend. It implements interview.Submitter.
type Client struct {
	http *resty.Client
}

// errorBody covers both {"error": "..."} and {"message": "..."} responses
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *errorBody) text() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func New(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		// submissions are not idempotent, so a 5xx is only retried for reads
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.Request.Method == http.MethodGet && r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}

	c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(requestIDHeader) == "" {
			r.SetHeader(requestIDHeader, uuid.NewString())
		}
		return nil
	})
	c.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		log.Printf("API: %s %s -> %d in %v (request %s)",
			r.Request.Method, r.Request.URL, r.StatusCode(), r.Time(), r.Request.Header.Get(requestIDHeader))
		return nil
	})

	return &Client{http: c}
}

// FetchInterview loads the question list for id.
func (c *Client) FetchInterview(ctx context.Context, id string) (*Interview, error) {
	var out Interview
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/api/interviews/{id}")
	if err != nil {
		return nil, fmt.Errorf("fetch interview %s: %w", id, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("fetch interview %s: %w", id, ErrInterviewNotFound)
	}
	if resp.IsError() {
		msg, _ := resp.Error().(*errorBody)
		return nil, fmt.Errorf("fetch interview %s: status %d: %s", id, resp.StatusCode(), firstNonEmpty(msg.text(), resp.Status()))
	}

	if out.ID == "" {
		out.ID = id
	}
	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("fetch interview %s: %w", id, err)
	}

	log.Printf("API: fetched interview %s with %d questions", out.ID, len(out.Questions))
	return &out, nil
}

// Submit posts the ordered answer set. Any failure comes back as
// *interview.SubmissionError so the caller can offer a retry.
func (c *Client) Submit(ctx context.Context, sub interview.Submission) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", sub.InterviewID).
		SetHeader("Content-Type", "application/json").
		SetBody(sub).
		SetError(&errorBody{}).
		Post("/api/interviews/{id}/answers")
	if err != nil {
		return &interview.SubmissionError{Err: err}
	}

	if resp.IsError() {
		msg, _ := resp.Error().(*errorBody)
		text := msg.text()
		if text == "" {
			text = strings.TrimSpace(jsonFreeBody(resp.Body()))
		}
		return &interview.SubmissionError{
			Status:  resp.StatusCode(),
			Message: text,
			Err:     fmt.Errorf("submit answers for %s: %s", sub.InterviewID, resp.Status()),
		}
	}

	log.Printf("API: submitted %d answers for interview %s", len(sub.Answers), sub.InterviewID)
	return nil
}

// LoadFile reads an interview from a JSON file in the same shape the backend serves.
func LoadFile(path string) (*Interview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interview file: %w", err)
	}

	var out Interview
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse interview file %s: %w", path, err)
	}
	if out.ID == "" {
		out.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("interview file %s: %w", path, err)
	}
	return &out, nil
}

func (iv *Interview) validate() error {
	if len(iv.Questions) == 0 {
		return ErrNoQuestions
	}
	for i, q := range iv.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("question %d has an empty prompt", i+1)
		}
	}
	return nil
}

// jsonFreeBody returns a short plain-text body, or nothing if it looks like JSON or HTML.
func jsonFreeBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" || strings.HasPrefix(s, "{") || strings.HasPrefix(s, "<") || len(s) > 200 {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
