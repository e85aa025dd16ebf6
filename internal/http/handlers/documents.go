package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"cramdesk/internal/domain"
	"cramdesk/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var pdfMagic = []byte("%PDF-")

type documentDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Language  string `json:"language"`
	PageCount int    `json:"page_count"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func documentToDTO(d *domain.Document) documentDTO {
	return documentDTO{
		ID:        d.ID,
		Title:     d.Title,
		Language:  d.Language,
		PageCount: d.PageCount,
		Status:    string(d.Status),
		Error:     d.ErrorMessage,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// DocumentUpload accepts a multipart PDF upload, stores the file, and queues
// the document for text extraction.
func (a *App) DocumentUpload(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.Config.MaxUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", "only PDF uploads are accepted")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(path.Base(header.Filename), ".pdf")
	}
	if title == "" {
		title = "Untitled document"
	}

	key := fmt.Sprintf("documents/%s/%s.pdf", accountID, uuid.NewString())
	storedKey, err := a.Files.Write(r.Context(), key, data)
	if err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("store upload failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}

	doc := &domain.Document{
		AccountID:  accountID,
		Title:      title,
		StorageKey: storedKey,
		Language:   middleware.LocaleFromContext(r.Context()),
	}
	if err := a.Documents.Create(r.Context(), doc); err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("create document failed")
		a.storeError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"id":     doc.ID,
		"title":  doc.Title,
		"status": string(domain.DocumentStatusUploaded),
	})
}

// DocumentList returns the account's documents, newest first.
func (a *App) DocumentList(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	docs, err := a.Documents.ListByAccount(r.Context(), accountID, limit)
	if err != nil {
		a.storeError(w, err)
		return
	}
	out := make([]documentDTO, 0, len(docs))
	for i := range docs {
		out = append(out, documentToDTO(&docs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"documents": out})
}

// DocumentGet returns one document including its extraction state.
func (a *App) DocumentGet(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	docID := chi.URLParam(r, "document_id")
	if docID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "document_id required")
		return
	}
	doc, err := a.Documents.GetByID(r.Context(), docID, accountID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.json(w, http.StatusOK, documentToDTO(doc))
}

// DocumentDelete removes a document, its stored file, and, via cascade, its
// generated study aids.
func (a *App) DocumentDelete(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	docID := chi.URLParam(r, "document_id")
	if docID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "document_id required")
		return
	}
	doc, err := a.Documents.GetByID(r.Context(), docID, accountID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	if err := a.Documents.Delete(r.Context(), docID, accountID); err != nil {
		a.storeError(w, err)
		return
	}
	if err := a.Files.Remove(r.Context(), doc.StorageKey); err != nil {
		a.Logger.Warn().Err(err).Str("document_id", docID).Msg("remove stored file failed")
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}
