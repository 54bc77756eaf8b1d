package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/insightlab/insighthub/internal/knowledge"
)

// IndexerStore is the storage interface the Indexer depends on.
// knowledge.Store satisfies it.
type IndexerStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
	ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]knowledge.Document, error)
	Delete(ctx context.Context, docID string) error
}

// defaultSupportedExtensions are the file types indexed by default.
var defaultSupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".java": true,
	".rs":   true,
	".rb":   true,
	".sh":   true,
	".yaml": true,
	".yml":  true,
	".json": true,
	".xml":  true,
	".html": true,
	".css":  true,
	".sql":  true,
	".csv":  true,
}

// DefaultListLimit caps ListDocuments to prevent unbounded queries.
const DefaultListLimit = 1000

// maxIndexableFileSize skips files that are clearly not prose or code.
const maxIndexableFileSize = 2 * 1024 * 1024 // 2MB

// IndexResult summarizes an indexing operation.
type IndexResult struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	TotalSize    int64
	Duration     time.Duration
}

// Indexer ingests local files into the knowledge store. Oversized files are
// split into chunks rather than truncated, so the whole file remains
// retrievable.
type Indexer struct {
	store               IndexerStore
	supportedExtensions map[string]bool
}

// NewIndexer creates a file indexer. If extensions is empty the defaults
// apply.
func NewIndexer(store IndexerStore, extensions []string) *Indexer {
	extMap := make(map[string]bool)
	if len(extensions) > 0 {
		for _, ext := range extensions {
			extMap[strings.ToLower(ext)] = true
		}
	} else {
		// Copy so instances never share the default map.
		for k, v := range defaultSupportedExtensions {
			extMap[k] = v
		}
	}

	return &Indexer{store: store, supportedExtensions: extMap}
}

// AddFile ingests a single file.
func (idx *Indexer) AddFile(ctx context.Context, filePath string) (int, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	// os.Root confines reads to the parent directory, blocking traversal
	// and symlink escapes.
	root, err := os.OpenRoot(filepath.Dir(absPath))
	if err != nil {
		return 0, fmt.Errorf("opening root directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	fileName := filepath.Base(absPath)
	info, err := root.Stat(fileName)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("path is a directory, use AddDirectory instead")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !idx.supportedExtensions[ext] {
		return 0, fmt.Errorf("unsupported file type: %s", ext)
	}
	if info.Size() > maxIndexableFileSize {
		return 0, fmt.Errorf("file %s (%d bytes) exceeds indexing limit (%d bytes)",
			fileName, info.Size(), maxIndexableFileSize)
	}

	content, err := readRootFile(root, fileName)
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	return idx.addContent(ctx, absPath, info.Size(), string(content))
}

// readRootFile reads a file through the confined root handle.
func readRootFile(root *os.Root, name string) ([]byte, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// addContent chunks and stores file content. Returns the number of chunks
// written.
func (idx *Indexer) addContent(ctx context.Context, absPath string, size int64, content string) (int, error) {
	chunks := splitChunks(content)
	now := time.Now()

	for i, chunk := range chunks {
		doc := knowledge.Document{
			ID:      generateDocID(absPath, i),
			Content: chunk,
			Metadata: map[string]string{
				"source_type": knowledge.SourceTypeFile,
				"file_path":   absPath,
				"file_name":   filepath.Base(absPath),
				"file_ext":    strings.ToLower(filepath.Ext(absPath)),
				"file_size":   fmt.Sprintf("%d", size),
				"chunk":       fmt.Sprintf("%d/%d", i+1, len(chunks)),
				"indexed_at":  now.Format(time.RFC3339),
			},
			CreateAt: now,
		}
		if err := idx.store.Add(ctx, doc); err != nil {
			return i, fmt.Errorf("adding chunk %d of %s: %w", i+1, absPath, err)
		}
	}

	return len(chunks), nil
}

// AddDirectory recursively ingests all supported files under dirPath,
// honoring a .gitignore at the directory root.
func (idx *Indexer) AddDirectory(ctx context.Context, dirPath string) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	absDir, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolving directory path: %w", err)
	}

	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("opening root directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	var gitIgnore *ignore.GitIgnore
	if _, err := os.Stat(filepath.Join(absDir, ".gitignore")); err == nil {
		// A malformed .gitignore is ignored rather than aborting the run.
		gitIgnore, _ = ignore.CompileIgnoreFile(filepath.Join(absDir, ".gitignore"))
	}

	walkErr := filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.FilesFailed++
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			result.FilesSkipped++
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !idx.supportedExtensions[ext] || info.Size() > maxIndexableFileSize {
			result.FilesSkipped++
			return nil
		}

		content, err := readRootFile(root, relPath)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		chunks, err := idx.addContent(ctx, path, info.Size(), string(content))
		result.ChunksAdded += chunks
		if err != nil {
			result.FilesFailed++
			return nil
		}

		result.FilesAdded++
		result.TotalSize += info.Size()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking directory: %w", walkErr)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// ListDocuments returns all indexed file documents.
func (idx *Indexer) ListDocuments(ctx context.Context) ([]knowledge.Document, error) {
	docs, err := idx.store.ListBySourceType(ctx, knowledge.SourceTypeFile, DefaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// RemoveDocument deletes an indexed document by ID.
func (idx *Indexer) RemoveDocument(ctx context.Context, docID string) error {
	if err := idx.store.Delete(ctx, docID); err != nil {
		return fmt.Errorf("removing document: %w", err)
	}
	return nil
}

// generateDocID derives a stable ID from the absolute path and chunk index,
// so re-indexing the same file updates in place.
func generateDocID(absPath string, chunk int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", absPath, chunk)))
	return "file:" + hex.EncodeToString(sum[:16])
}
