package vision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/security"
)

// DefaultVideoPrompt is used when the caller gives no instructions.
const DefaultVideoPrompt = "Summarize this video: what happens, who or what appears, and any spoken or on-screen text worth noting."

const (
	// pollInterval between Files API state checks.
	pollInterval = 2 * time.Second

	// processingTimeout caps how long one upload may stay in PROCESSING.
	processingTimeout = 5 * time.Minute
)

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mpeg": "video/mpeg",
}

// VideoAnalyzer uploads videos through the Gemini Files API and analyzes
// them. Unlike images, video files are too large for inline parts and must
// be processed server-side before a prompt can reference them.
type VideoAnalyzer struct {
	client        *genai.Client
	pathValidator *security.Path
	modelName     string
	logger        log.Logger
}

// NewVideoAnalyzer creates a video analyzer. modelName must be the bare
// Gemini model name without a provider prefix.
func NewVideoAnalyzer(client *genai.Client, pathValidator *security.Path, modelName string, logger log.Logger) (*VideoAnalyzer, error) {
	if client == nil {
		return nil, errors.New("genai client cannot be nil")
	}
	if pathValidator == nil {
		return nil, errors.New("path validator cannot be nil")
	}
	if modelName == "" {
		return nil, errors.New("model name cannot be empty")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &VideoAnalyzer{
		client:        client,
		pathValidator: pathValidator,
		modelName:     strings.TrimPrefix(modelName, "googleai/"),
		logger:        logger,
	}, nil
}

// Analyze uploads a video, waits for server-side processing and answers the
// prompt about it. The uploaded file is deleted afterwards.
func (a *VideoAnalyzer) Analyze(ctx context.Context, videoPath, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultVideoPrompt
	}

	safePath, err := a.pathValidator.Validate(videoPath)
	if err != nil {
		return "", fmt.Errorf("validating path: %w", err)
	}

	mimeType, err := videoMIMEType(safePath)
	if err != nil {
		return "", err
	}

	file, err := a.upload(ctx, safePath, mimeType)
	if err != nil {
		return "", err
	}
	defer func() {
		// Uploaded files expire after 48 hours anyway; deleting frees quota
		// immediately.
		if _, err := a.client.Files.Delete(context.WithoutCancel(ctx), file.Name, nil); err != nil {
			a.logger.Warn("deleting uploaded video failed", "file", file.Name, "error", err)
		}
	}()

	resp, err := a.client.Models.GenerateContent(ctx, a.modelName,
		[]*genai.Content{
			genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromURI(file.URI, mimeType),
				genai.NewPartFromText(prompt),
			}, genai.RoleUser),
		}, nil)
	if err != nil {
		return "", fmt.Errorf("analyzing video: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("model returned an empty response")
	}
	return text, nil
}

// upload sends the file and polls until processing finishes.
func (a *VideoAnalyzer) upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	start := time.Now()

	file, err := a.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("uploading video: %w", err)
	}

	a.logger.Info("video uploaded, waiting for processing",
		"file", file.Name, "path", filepath.Base(path))

	deadline := time.Now().Add(processingTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("video processing timed out after %s", processingTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}

		file, err = a.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("checking video state: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("video processing failed: %s", file.Name)
	}

	a.logger.Info("video ready", "file", file.Name, "duration", time.Since(start))
	return file, nil
}

// videoMIMEType maps a file extension to its MIME type. Video containers
// lack reliable magic bytes for every format, so the extension decides.
func videoMIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := videoMIMETypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported video format: %s", ext)
	}
	return mimeType, nil
}
