package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/quailyquaily/bildbot/llm"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 90 * time.Second},
	}
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	apiErrorBody
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()

	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return llm.Result{}, err
	}

	raw, status, err := c.postJSON(ctx, "/v1/chat/completions", b)
	if err != nil {
		return llm.Result{}, err
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Result{}, &llm.Error{Kind: llm.ErrKindAPI, StatusCode: status, Message: "undecodable response: " + err.Error()}
	}
	if status < 200 || status >= 300 {
		return llm.Result{}, classifyAPIError(status, out.apiErrorBody, raw)
	}
	if len(out.Choices) == 0 {
		return llm.Result{}, &llm.Error{Kind: llm.ErrKindAPI, StatusCode: status, Message: "empty choices"}
	}

	return llm.Result{
		Text: out.Choices[0].Message.Content,
		Usage: llm.Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	apiErrorBody
}

func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (llm.Image, error) {
	body := imageGenerationRequest{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              1,
		Size:           req.Size,
		Quality:        req.Quality,
		ResponseFormat: "b64_json",
	}
	b, err := json.Marshal(body)
	if err != nil {
		return llm.Image{}, err
	}
	raw, status, err := c.postJSON(ctx, "/v1/images/generations", b)
	if err != nil {
		return llm.Image{}, err
	}
	return decodeImageResponse(status, raw)
}

func (c *Client) Edit(ctx context.Context, req llm.EditRequest) (llm.Image, error) {
	fields := map[string]string{
		"model":           req.Model,
		"prompt":          req.Prompt,
		"n":               "1",
		"size":            req.Size,
		"response_format": "b64_json",
	}
	raw, status, err := c.postImageMultipart(ctx, "/v1/images/edits", fields, req.Image)
	if err != nil {
		return llm.Image{}, err
	}
	return decodeImageResponse(status, raw)
}

func (c *Client) Variation(ctx context.Context, req llm.VariationRequest) (llm.Image, error) {
	fields := map[string]string{
		"model":           req.Model,
		"n":               "1",
		"size":            req.Size,
		"response_format": "b64_json",
	}
	raw, status, err := c.postImageMultipart(ctx, "/v1/images/variations", fields, req.Image)
	if err != nil {
		return llm.Image{}, err
	}
	return decodeImageResponse(status, raw)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq)
}

func (c *Client) postImageMultipart(ctx context.Context, path string, fields map[string]string, image []byte) ([]byte, int, error) {
	if len(image) == 0 {
		return nil, 0, &llm.Error{Kind: llm.ErrKindAPI, Message: "missing image bytes"}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, 0, err
		}
	}
	part, err := mw.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, 0, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, 0, err
	}
	if err := mw.Close(); err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, &llm.Error{Kind: llm.ErrKindConnection, Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &llm.Error{Kind: llm.ErrKindConnection, Message: err.Error()}
	}
	return raw, resp.StatusCode, nil
}

func decodeImageResponse(status int, raw []byte) (llm.Image, error) {
	var out imageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Image{}, &llm.Error{Kind: llm.ErrKindAPI, StatusCode: status, Message: "undecodable response: " + err.Error()}
	}
	if status < 200 || status >= 300 {
		return llm.Image{}, classifyAPIError(status, out.apiErrorBody, raw)
	}
	if len(out.Data) == 0 || strings.TrimSpace(out.Data[0].B64JSON) == "" {
		return llm.Image{}, &llm.Error{Kind: llm.ErrKindAPI, StatusCode: status, Message: "empty image data"}
	}
	b, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return llm.Image{}, &llm.Error{Kind: llm.ErrKindAPI, StatusCode: status, Message: "invalid base64 image: " + err.Error()}
	}
	return llm.Image{Bytes: b, MimeType: "image/png"}, nil
}

func classifyAPIError(status int, body apiErrorBody, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	code, typ := "", ""
	if body.Error != nil {
		if m := strings.TrimSpace(body.Error.Message); m != "" {
			msg = m
		}
		code = strings.ToLower(strings.TrimSpace(body.Error.Code))
		typ = strings.ToLower(strings.TrimSpace(body.Error.Type))
	}

	kind := llm.ErrKindAPI
	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusTooManyRequests, code == "insufficient_quota", typ == "insufficient_quota":
		kind = llm.ErrKindQuota
	case code == "content_policy_violation", strings.Contains(lower, "safety system"), strings.Contains(lower, "content policy"):
		kind = llm.ErrKindContentPolicy
	}
	return &llm.Error{Kind: kind, StatusCode: status, Message: msg}
}

var _ llm.Client = (*Client)(nil)
var _ llm.ImageClient = (*Client)(nil)
