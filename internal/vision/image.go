// Package vision analyzes images and videos with Gemini's multimodal
// models. Images travel inline as base64 media parts; videos go through the
// Files API, which requires an upload and processing wait before the file
// can be referenced in a prompt.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/security"
)

// DefaultImagePrompt is used when the caller gives no instructions.
const DefaultImagePrompt = "Describe this image in detail: main subjects, setting, notable text, and anything unusual."

const imageSystemPrompt = `You are a visual analyst. Describe what is actually visible in the
provided media. Quote any legible text exactly. If the user asks a question
the media cannot answer, say so rather than guessing.`

// maxImageSize bounds inline image payloads.
const maxImageSize = 20 * 1024 * 1024 // 20MB

// ImageAnalyzer answers questions about local image files.
type ImageAnalyzer struct {
	g             *genkit.Genkit
	pathValidator *security.Path
	modelName     string
	logger        log.Logger
}

// NewImageAnalyzer creates an image analyzer.
func NewImageAnalyzer(g *genkit.Genkit, pathValidator *security.Path, modelName string, logger log.Logger) (*ImageAnalyzer, error) {
	if g == nil {
		return nil, errors.New("genkit instance cannot be nil")
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
	return &ImageAnalyzer{g: g, pathValidator: pathValidator, modelName: modelName, logger: logger}, nil
}

// Analyze answers a prompt about one image.
func (a *ImageAnalyzer) Analyze(ctx context.Context, imagePath, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultImagePrompt
	}

	part, err := imagePart(a.pathValidator, imagePath)
	if err != nil {
		return "", err
	}

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(imageSystemPrompt),
		ai.WithMessages(ai.NewUserMessage(part, ai.NewTextPart(prompt))),
	)
	if err != nil {
		return "", fmt.Errorf("analyzing image: %w", err)
	}
	return resp.Text(), nil
}

// Compare analyzes several images in one prompt.
func (a *ImageAnalyzer) Compare(ctx context.Context, imagePaths []string, prompt string) (string, error) {
	if len(imagePaths) == 0 {
		return "", errors.New("no images provided")
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = "Compare these images and describe their similarities and differences."
	}

	parts := make([]*ai.Part, 0, len(imagePaths)+1)
	for i, p := range imagePaths {
		part, err := imagePart(a.pathValidator, p)
		if err != nil {
			return "", fmt.Errorf("image %d: %w", i+1, err)
		}
		parts = append(parts, part)
	}
	parts = append(parts, ai.NewTextPart(prompt))

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(imageSystemPrompt),
		ai.WithMessages(ai.NewUserMessage(parts...)),
	)
	if err != nil {
		return "", fmt.Errorf("comparing images: %w", err)
	}
	return resp.Text(), nil
}

// imagePart reads and validates an image file and wraps it as an inline
// base64 media part.
func imagePart(pathValidator *security.Path, imagePath string) (*ai.Part, error) {
	safePath, err := pathValidator.Validate(imagePath)
	if err != nil {
		return nil, fmt.Errorf("validating path: %w", err)
	}

	info, err := os.Stat(safePath)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > maxImageSize {
		return nil, fmt.Errorf("image %s (%d bytes) exceeds inline size limit (%d bytes)",
			filepath.Base(safePath), info.Size(), maxImageSize)
	}

	data, err := os.ReadFile(safePath) // #nosec G304 -- validated above
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	mediaType, err := detectImageType(data, safePath)
	if err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return ai.NewMediaPart(mediaType, "data:"+mediaType+";base64,"+encoded), nil
}

// detectImageType sniffs magic bytes first and falls back to the extension,
// since content detection beats trusting a spoofable file name.
func detectImageType(data []byte, path string) (string, error) {
	mediaType := http.DetectContentType(data)
	if strings.HasPrefix(mediaType, "image/") {
		return mediaType, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".gif":
		return "image/gif", nil
	case ".webp":
		return "image/webp", nil
	}
	return "", fmt.Errorf("not a supported image (detected %s)", mediaType)
}
