package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/werklead/go-ingest/internal/config"
)

// Fields is the rigid output schema requested from the completion API.
// Every field is best-effort; zero values mean "not found".
type Fields struct {
	Salary       string   `json:"salary"`
	HoursMin     int      `json:"hours_min"`
	HoursMax     int      `json:"hours_max"`
	Requirements []string `json:"requirements"`

	CompanyWebsite string `json:"company_website"`
	CompanyPhone   string `json:"company_phone"`
	CompanyEmail   string `json:"company_email"`

	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	ContactTitle string `json:"contact_title"`
}

// Result is a total value: either fields parsed from the model, or the
// all-null default with the reason extraction was skipped or failed.
type Result struct {
	Fields    Fields
	FromModel bool
	Reason    string
}

func defaultResult(reason string) Result {
	return Result{Reason: reason}
}

const maxRequirements = 5

const systemPrompt = `You extract structured facts from Dutch and English job postings.
Respond with a single JSON object using exactly these keys:
salary (string), hours_min (int), hours_max (int),
requirements (array of at most 5 short strings),
company_website (string), company_phone (string), company_email (string),
contact_name (string), contact_email (string), contact_phone (string), contact_title (string).
Use "" or 0 for anything the text does not state. Never invent values.`

// Extractor sends free-text job descriptions to a chat-completion endpoint
// with a fixed extraction schema. Any failure degrades to the default
// result; the pipeline never halts on this dependency.
type Extractor struct {
	client *http.Client
	cfg    config.ExtractorConfig
	logger *zap.Logger
}

// NewExtractor creates an extractor from config.
func NewExtractor(cfg config.ExtractorConfig, logger *zap.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// ==================== completion wire types ====================

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat respFormat    `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract submits free text for structured extraction. Input is truncated
// to the configured rune cap; inputs below the minimum length skip the
// call entirely.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < e.cfg.MinInputChars {
		return defaultResult("input too short")
	}
	if e.cfg.APIKey == "" {
		return defaultResult("no API credential")
	}

	if runes := []rune(text); len(runes) > e.cfg.MaxInputChars && e.cfg.MaxInputChars > 0 {
		text = string(runes[:e.cfg.MaxInputChars])
	}

	fields, err := e.complete(ctx, text)
	if err != nil {
		e.logger.Warn("text extraction degraded", zap.Error(err))
		return defaultResult(err.Error())
	}

	if len(fields.Requirements) > maxRequirements {
		fields.Requirements = fields.Requirements[:maxRequirements]
	}

	return Result{Fields: fields, FromModel: true}
}

func (e *Extractor) complete(ctx context.Context, text string) (Fields, error) {
	payload := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature:    0,
		ResponseFormat: respFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Fields{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Fields{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Fields{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fields{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fields{}, fmt.Errorf("read body: %w", err)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return Fields{}, fmt.Errorf("parse response: %w", err)
	}
	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return Fields{}, fmt.Errorf("empty completion")
	}

	var fields Fields
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &fields); err != nil {
		return Fields{}, fmt.Errorf("parse extraction schema: %w", err)
	}

	return fields, nil
}
