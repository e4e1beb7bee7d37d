package docstore

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/askdata/askdata/internal/config"
	apperrors "github.com/askdata/askdata/internal/errors"
	"github.com/askdata/askdata/internal/logging"
)

// Chunk is one retrievable fragment of documentation, ordered by similarity
// to the question that retrieved it.
type Chunk struct {
	ID         string
	Content    string
	Similarity float32
}

// Retriever is the read-side contract consumed by the query pipeline
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) []Chunk
}

// Store holds documentation chunks in an embedded chromem collection
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *logging.Logger
}

// New opens the vector store. An empty path keeps the store in memory.
// Construction errors are fatal: a store that cannot be opened is reported
// once at startup, never per-request.
func New(path, collectionName string, embed chromem.EmbeddingFunc) (*Store, error) {
	var db *chromem.DB

	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error

		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypeContextStore,
				"failed to open vector store")
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeContextStore,
			"failed to open collection %s", collectionName)
	}

	return &Store{
		db:         db,
		collection: collection,
		logger:     logging.GetLogger(),
	}, nil
}

// EmbeddingFromConfig selects an embedding function matching the configured
// model provider. Ollama serves local setups; everything else goes through
// the OpenAI embeddings endpoint.
func EmbeddingFromConfig(cfg config.LLMConfig) chromem.EmbeddingFunc {
	switch cfg.Provider {
	case "ollama", "local":
		return chromem.NewEmbeddingFuncOllama("nomic-embed-text", cfg.BaseURL)
	case "openai":
		if cfg.APIKey != "" {
			return chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI3Small)
		}

		return chromem.NewEmbeddingFuncDefault()
	default:
		return chromem.NewEmbeddingFuncDefault()
	}
}

// ChunkText splits text into fixed-size character chunks. The final chunk
// carries whatever remains, so the chunks always cover the full input.
func ChunkText(text string, chunkSize int) []string {
	if text == "" || chunkSize <= 0 {
		return nil
	}

	runes := []rune(text)

	var chunks []string

	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

// IndexDocument chunks a document and adds it to the collection. Returns the
// number of chunks stored.
func (s *Store) IndexDocument(ctx context.Context, source, text string, chunkSize int) (int, error) {
	chunks := ChunkText(text, chunkSize)
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, 0, len(chunks))

	for i, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s-%d-%s", source, i, uuid.New().String()),
			Content: chunk,
			Metadata: map[string]string{
				"source": source,
			},
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypeContextStore,
			"failed to index document")
	}

	return len(docs), nil
}

// IndexRows renders dataset rows as "column: value" text and indexes the
// chunks, so questions can also retrieve raw data context.
func (s *Store) IndexRows(
	ctx context.Context,
	source string,
	columns []string,
	rows [][]any,
	chunkSize int,
) (int, error) {
	total := 0

	for i, row := range rows {
		text := RenderRow(columns, row)

		n, err := s.IndexDocument(ctx, fmt.Sprintf("%s-row-%d", source, i), text, chunkSize)
		if err != nil {
			return total, err
		}

		total += n
	}

	return total, nil
}

// RenderRow renders one dataset row as "column: value" pairs
func RenderRow(columns []string, row []any) string {
	var sb []byte

	for i, col := range columns {
		if i > 0 {
			sb = append(sb, ' ')
		}

		var value any
		if i < len(row) {
			value = row[i]
		}

		sb = fmt.Appendf(sb, "%s: %v", col, value)
	}

	return string(sb)
}

// Count returns the number of chunks currently indexed
func (s *Store) Count() int {
	return s.collection.Count()
}

// Retrieve returns up to k chunks ranked by similarity to the question.
// It never fails for a well-formed query: an empty store, k <= 0, or a
// transient retrieval error all degrade to an empty result.
func (s *Store) Retrieve(ctx context.Context, question string, k int) []Chunk {
	if k <= 0 || question == "" {
		return nil
	}

	count := s.collection.Count()
	if count == 0 {
		return nil
	}

	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, question, k, nil, nil)
	if err != nil {
		s.logger.WithError(err).Warn("context retrieval failed, proceeding without documentation")
		return nil
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, Chunk{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}

	return chunks
}
