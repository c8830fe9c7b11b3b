package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

// Image is a rendered image returned by one of the image operations.
type Image struct {
	Bytes    []byte
	MimeType string
}

type GenerateRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

type EditRequest struct {
	Model  string
	Image  []byte
	Prompt string
	Size   string
}

type VariationRequest struct {
	Model string
	Image []byte
	Size  string
}

type ImageClient interface {
	Generate(ctx context.Context, req GenerateRequest) (Image, error)
	Edit(ctx context.Context, req EditRequest) (Image, error)
	Variation(ctx context.Context, req VariationRequest) (Image, error)
}
