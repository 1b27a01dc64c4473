// Package transcribe produces and translates SRT subtitles through
// the OpenAI API.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/subvoc/subvoc/internal/logging"
)

// openAIAPI is the subset of the go-openai client we call. Narrowed
// for test doubles.
type openAIAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service transcribes media files to SRT and translates SRT content
// between languages.
type Service struct {
	client openAIAPI
	model  string
	log    *logging.Logger
}

// New creates a transcription service backed by the OpenAI API.
// model is the chat model used for translation; transcription always
// uses Whisper.
func New(apiKey, model string, log *logging.Logger) *Service {
	return &Service{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    log,
	}
}

// Transcribe sends the media file at path to Whisper and returns the
// resulting subtitles in SRT form.
func (s *Service) Transcribe(ctx context.Context, path string) (string, error) {
	s.log.WithField("path", path).Debug("requesting transcription")

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
		Format:   openai.AudioResponseFormatSRT,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("transcription returned no content for %s", path)
	}

	return resp.Text, nil
}

// Translate converts SRT content into the target language while
// preserving sequence numbers and timestamps. Empty input is returned
// as-is; there is nothing to translate.
func (s *Service) Translate(ctx context.Context, srtContent, targetLanguage string) (string, error) {
	if strings.TrimSpace(srtContent) == "" {
		return srtContent, nil
	}

	systemPrompt := fmt.Sprintf(
		"You are a professional translator specialized in video subtitles. "+
			"Translate the following subtitles into %s. Maintain the original SRT format, "+
			"including timestamps and sequence numbers, exactly. Only output the translated SRT content.",
		targetLanguage)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: srtContent,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("translation returned an empty response")
	}

	translated := resp.Choices[0].Message.Content
	if err := ValidateSRT(translated); err != nil {
		return "", fmt.Errorf("translated subtitles are malformed: %w", err)
	}

	return translated, nil
}

// ValidateSRT performs a light structural check on SRT content: at
// least one cue with a timestamp arrow line.
func ValidateSRT(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("empty subtitle content")
	}
	if !strings.Contains(content, "-->") {
		return fmt.Errorf("no timestamp cues found")
	}
	return nil
}
