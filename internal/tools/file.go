package tools

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/security"
)

// ReadFileName is the Genkit tool name for file reads.
const ReadFileName = "read_file"

// maxReadFileSize caps how much file content one tool call returns.
const maxReadFileSize = 256 * 1024 // 256KB

// FileReadInput is the input schema for read_file.
type FileReadInput struct {
	Path string `json:"path" jsonschema_description:"Path to a text file inside the working directory"`
}

// FileReadOutput is the output schema for read_file.
type FileReadOutput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// FileToolset lets the chat agent read local text files, confined to the
// working directory by the path validator.
type FileToolset struct {
	pathValidator *security.Path
	logger        log.Logger
}

// NewFileToolset creates the file toolset.
func NewFileToolset(pathValidator *security.Path, logger log.Logger) (*FileToolset, error) {
	if pathValidator == nil {
		return nil, errors.New("path validator is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &FileToolset{pathValidator: pathValidator, logger: logger}, nil
}

// Register defines the toolset's tools with Genkit.
func (ft *FileToolset) Register(g *genkit.Genkit) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, ReadFileName,
			"Read a text file from the working directory and return its content. "+
				"Paths outside the working directory are rejected. "+
				"Use this when the user refers to a local file by path.",
			ft.Read),
	}
}

// Read handles the read_file tool call.
func (ft *FileToolset) Read(_ *ai.ToolContext, input FileReadInput) (FileReadOutput, error) {
	if input.Path == "" {
		return FileReadOutput{}, errors.New("path is required")
	}

	safePath, err := ft.pathValidator.Validate(input.Path)
	if err != nil {
		ft.logger.Warn("read_file blocked", "path", input.Path, "error", err)
		return FileReadOutput{}, fmt.Errorf("path rejected: %w", err)
	}

	info, err := os.Stat(safePath)
	if err != nil {
		return FileReadOutput{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return FileReadOutput{}, fmt.Errorf("%s is a directory", safePath)
	}
	if info.Size() > maxReadFileSize {
		return FileReadOutput{}, fmt.Errorf("file too large: %d bytes (limit %d)", info.Size(), maxReadFileSize)
	}

	content, err := os.ReadFile(safePath) // #nosec G304 -- validated above
	if err != nil {
		return FileReadOutput{}, fmt.Errorf("reading file: %w", err)
	}
	if !utf8.Valid(content) {
		return FileReadOutput{}, errors.New("file is not valid UTF-8 text")
	}

	return FileReadOutput{
		Path:    safePath,
		Content: string(content),
		Size:    info.Size(),
	}, nil
}
