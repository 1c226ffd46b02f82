package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/genstack0/genstack/internal/docproc"
	"github.com/genstack0/genstack/internal/stack"
)

// ingestor embeds chunks into a vector collection.
// Implemented by knowledge.Ingestor.
type ingestor interface {
	Ingest(ctx context.Context, collection string, texts []string, apiKey, model string) (int, error)
}

// collectionDeleter drops a vector collection when its document goes away.
// Implemented by knowledge.Store.
type collectionDeleter interface {
	DeleteCollection(ctx context.Context, collection string) error
}

// documentHandler serves document upload, listing and deletion.
type documentHandler struct {
	store       *stack.Store
	processor   *docproc.Processor
	ingestor    ingestor
	collections collectionDeleter
	maxFileSize int64
	logger      *slog.Logger
}

// upload accepts a multipart document, extracts and chunks its text, embeds
// the chunks into a fresh collection and records the document on its stack.
//
// Embedding failures are absorbed: the document record is still created so
// the upload is never lost, it just contributes no retrieval context.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1024*1024)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	stackID := r.FormValue("stack_id")
	if stackID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "stack_id is required")
		return
	}

	if !docproc.Supported(header.Filename) {
		writeError(w, http.StatusBadRequest, "unsupported_type",
			fmt.Sprintf("Unsupported file type: %s", filepath.Ext(header.Filename)))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_failed", "failed to read uploaded file")
		return
	}
	if int64(len(content)) > h.maxFileSize {
		writeError(w, http.StatusBadRequest, "file_too_large",
			fmt.Sprintf("File too large. Maximum size: %dMB", h.maxFileSize/1024/1024))
		return
	}

	embeddingModel := r.FormValue("embedding_model")
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-large"
	}
	apiKey := r.FormValue("api_key")

	chunkSize := docproc.DefaultChunkSize
	if v := r.FormValue("chunk_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			chunkSize = n
		}
	}

	ctx := r.Context()

	path, err := h.processor.SaveFile(header.Filename, content)
	if err != nil {
		h.logger.Error("saving upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "save_failed", "failed to save file")
		return
	}

	text, err := h.processor.ExtractText(path)
	if err != nil {
		_ = h.processor.DeleteFile(path)
		h.logger.Error("extracting text", "filename", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "extract_failed", "failed to extract text from document")
		return
	}

	chunks := docproc.Chunk(text, chunkSize, docproc.DefaultChunkOverlap)
	collection := stack.CollectionName(stackID)

	if len(chunks) > 0 {
		if _, err := h.ingestor.Ingest(ctx, collection, chunks, apiKey, embeddingModel); err != nil {
			h.logger.Warn("embedding failed, document stored without retrieval context",
				"filename", header.Filename, "collection", collection, "error", err)
		}
	}

	doc, err := h.store.AddDocument(ctx, stack.Document{
		StackID:        stackID,
		Filename:       header.Filename,
		FilePath:       path,
		FileType:       strings.ToLower(filepath.Ext(header.Filename)),
		FileSize:       fmt.Sprintf("%.1f KB", float64(len(content))/1024),
		CollectionName: collection,
		ChunkCount:     len(chunks),
	})
	if err != nil {
		_ = h.processor.DeleteFile(path)
		h.logger.Error("recording document", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "record_failed", "failed to record document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// list returns all documents of a stack.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	stackID := r.PathValue("stackID")

	docs, err := h.store.ListDocuments(r.Context(), stackID)
	if err != nil {
		h.logger.Error("listing documents", "stack_id", stackID, "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// delete removes a document, its vector collection and its on-disk file.
// Collection and file cleanup are best effort; the record always goes.
func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	doc, err := h.store.GetDocument(ctx, id)
	if errors.Is(err, stack.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Document not found")
		return
	}
	if err != nil {
		h.logger.Error("getting document", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to get document")
		return
	}

	if doc.CollectionName != "" {
		if err := h.collections.DeleteCollection(ctx, doc.CollectionName); err != nil {
			h.logger.Warn("deleting collection", "collection", doc.CollectionName, "error", err)
		}
	}
	if err := h.processor.DeleteFile(doc.FilePath); err != nil {
		h.logger.Warn("deleting file", "path", doc.FilePath, "error", err)
	}

	if err := h.store.DeleteDocument(ctx, id); err != nil {
		h.logger.Error("deleting document", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}
