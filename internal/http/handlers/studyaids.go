package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cramdesk/internal/domain"
	"cramdesk/internal/metrics"
	"cramdesk/internal/middleware"
	"cramdesk/internal/providers/llm"
	"cramdesk/internal/quota"
	zippkg "cramdesk/pkg/zip"

	"github.com/go-chi/chi/v5"
)

type studyAidResponse struct {
	ID             string          `json:"id"`
	DocumentID     string          `json:"document_id"`
	Kind           string          `json:"kind"`
	Language       string          `json:"language"`
	Provider       string          `json:"provider"`
	PagesCharged   int             `json:"pages_charged"`
	PagesRemaining int             `json:"pages_remaining"`
	Payload        json.RawMessage `json:"payload"`
}

// ledgerError translates hard ledger failures into HTTP responses. Denied
// decisions never reach here; they are structured outcomes.
func (a *App) ledgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "account_not_found", "account not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		a.error(w, http.StatusBadRequest, "invalid_argument", "invalid request")
	case errors.Is(err, domain.ErrStoreUnavailable):
		a.error(w, http.StatusServiceUnavailable, "store_unavailable", "storage backend unavailable")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "unexpected failure")
	}
}

// preflight authenticates the request, loads the target document, and runs
// the ledger pre-check for the estimated cost. estimate receives the loaded
// document so page-based kinds can size the check. A false return means a
// response has already been written.
func (a *App) preflight(w http.ResponseWriter, r *http.Request, kind domain.StudyAidKind, estimate func(*domain.Document) int) (accountID string, doc *domain.Document, ok bool) {
	accountID = a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return "", nil, false
	}
	docID := chi.URLParam(r, "document_id")
	if docID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "document_id required")
		return "", nil, false
	}
	doc, err := a.Documents.GetByID(r.Context(), docID, accountID)
	if err != nil {
		a.storeError(w, err)
		return "", nil, false
	}
	if !doc.IsReady() {
		a.error(w, http.StatusConflict, "document_not_ready", "document text extraction has not completed")
		return "", nil, false
	}

	cost, err := quota.CostFor(kind, estimate(doc))
	if err != nil {
		a.ledgerError(w, err)
		return "", nil, false
	}
	decision, err := a.Ledger.CheckAllowed(r.Context(), accountID, cost)
	if err != nil {
		a.ledgerError(w, err)
		return "", nil, false
	}
	metrics.ObserveDecision("check", decision.Allowed, string(decision.Reason))
	if !decision.Allowed {
		a.recordUsage(r.Context(), accountID, kind, decision, 0)
		metrics.GenerationsTotal.WithLabelValues(string(kind), "denied").Inc()
		a.denialError(w, decision)
		return "", nil, false
	}
	return accountID, doc, true
}

// settle deducts the realized cost, persists the study aid, and writes the
// response. The deduction re-validates the subscription, so a balance or
// status change since pre-flight still denies here.
func (a *App) settle(w http.ResponseWriter, r *http.Request, accountID string, doc *domain.Document, kind domain.StudyAidKind, language, provider string, realizedUnits int, payload any, started time.Time) {
	metrics.GenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(started).Seconds())

	cost, err := quota.CostFor(kind, realizedUnits)
	if err != nil {
		a.ledgerError(w, err)
		return
	}
	decision, err := a.Ledger.Deduct(r.Context(), accountID, cost)
	if err != nil {
		a.ledgerError(w, err)
		return
	}
	metrics.ObserveDecision("deduct", decision.Allowed, string(decision.Reason))
	if !decision.Allowed {
		a.recordUsage(r.Context(), accountID, kind, decision, 0)
		metrics.GenerationsTotal.WithLabelValues(string(kind), "denied").Inc()
		a.denialError(w, decision)
		return
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		a.Logger.Error().Err(err).Msg("marshal study aid payload failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode study aid")
		return
	}
	aid := &domain.StudyAid{
		AccountID:    accountID,
		DocumentID:   doc.ID,
		Kind:         kind,
		Language:     language,
		PagesCharged: cost,
		Payload:      payloadBytes,
		Provider:     provider,
	}
	if err := a.StudyAids.Save(r.Context(), aid); err != nil {
		// The deduction already happened; surface the aid anyway and let the
		// audit trail carry the charge.
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("save study aid failed")
	}
	a.recordUsage(r.Context(), accountID, kind, decision, cost)
	metrics.GenerationsTotal.WithLabelValues(string(kind), "ok").Inc()
	metrics.PagesChargedTotal.Add(float64(cost))

	a.maybeSendLowBalance(accountID, decision.PagesRemaining, cost)

	a.json(w, http.StatusOK, studyAidResponse{
		ID:             aid.ID,
		DocumentID:     doc.ID,
		Kind:           string(kind),
		Language:       language,
		Provider:       provider,
		PagesCharged:   cost,
		PagesRemaining: decision.PagesRemaining,
		Payload:        payloadBytes,
	})
}

// maybeSendLowBalance emails the account when this deduction crossed the low
// balance threshold. Fire-and-forget.
func (a *App) maybeSendLowBalance(accountID string, remaining, charged int) {
	if a.Email == nil {
		return
	}
	threshold := a.Config.LowBalanceThreshold
	if remaining > threshold || remaining+charged <= threshold {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		account, err := a.Accounts.GetByID(ctx, accountID)
		if err != nil {
			a.Logger.Warn().Err(err).Str("account_id", accountID).Msg("load account for low balance email failed")
			return
		}
		if err := a.Email.SendLowBalance(ctx, account.Email, account.Name, remaining); err != nil {
			a.Logger.Warn().Err(err).Str("account_id", accountID).Msg("low balance email failed")
		}
	}()
}

func (a *App) providerError(w http.ResponseWriter, kind domain.StudyAidKind, err error) {
	a.Logger.Error().Err(err).Str("kind", string(kind)).Msg("generation failed")
	metrics.GenerationsTotal.WithLabelValues(string(kind), "provider_failure").Inc()
	if errors.Is(err, domain.ErrInvalidArgument) {
		a.error(w, http.StatusBadRequest, "invalid_argument", "invalid generation request")
		return
	}
	a.error(w, http.StatusBadGateway, "provider_failure", "generation provider failed")
}

type quizGenerateRequest struct {
	QuestionCount int `json:"question_count"`
}

// QuizGenerate creates a multiple-choice quiz over a ready document. The
// pre-check uses the clamped requested count; billing uses the realized count.
func (a *App) QuizGenerate(w http.ResponseWriter, r *http.Request) {
	var req quizGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	count := quota.ClampQuizQuestions(req.QuestionCount)
	accountID, doc, ok := a.preflight(w, r, domain.StudyAidQuiz, func(*domain.Document) int { return count })
	if !ok {
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	started := time.Now()
	result, err := a.Provider.GenerateQuiz(r.Context(), llm.QuizRequest{
		Title:         doc.Title,
		DocumentText:  doc.ExtractedText,
		QuestionCount: count,
		Locale:        locale,
	})
	if err != nil {
		a.providerError(w, domain.StudyAidQuiz, err)
		return
	}
	a.settle(w, r, accountID, doc, domain.StudyAidQuiz, locale, result.Provider, len(result.Questions), result, started)
}

// SummaryGenerate creates a summary of a ready document, billed one page per
// document page.
func (a *App) SummaryGenerate(w http.ResponseWriter, r *http.Request) {
	accountID, doc, ok := a.preflight(w, r, domain.StudyAidSummary, func(d *domain.Document) int { return d.PageCount })
	if !ok {
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	started := time.Now()
	result, err := a.Provider.Summarize(r.Context(), llm.SummaryRequest{
		Title:        doc.Title,
		DocumentText: doc.ExtractedText,
		Locale:       locale,
	})
	if err != nil {
		a.providerError(w, domain.StudyAidSummary, err)
		return
	}
	a.settle(w, r, accountID, doc, domain.StudyAidSummary, locale, result.Provider, doc.PageCount, result, started)
}

type flashcardGenerateRequest struct {
	CardCount int `json:"card_count"`
}

// FlashcardsGenerate creates front/back study cards over a ready document.
func (a *App) FlashcardsGenerate(w http.ResponseWriter, r *http.Request) {
	var req flashcardGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	count := quota.ClampFlashcards(req.CardCount)
	accountID, doc, ok := a.preflight(w, r, domain.StudyAidFlashcards, func(*domain.Document) int { return count })
	if !ok {
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	started := time.Now()
	result, err := a.Provider.GenerateFlashcards(r.Context(), llm.FlashcardRequest{
		Title:        doc.Title,
		DocumentText: doc.ExtractedText,
		CardCount:    count,
		Locale:       locale,
	})
	if err != nil {
		a.providerError(w, domain.StudyAidFlashcards, err)
		return
	}
	a.settle(w, r, accountID, doc, domain.StudyAidFlashcards, locale, result.Provider, len(result.Cards), result, started)
}

type writerGenerateRequest struct {
	Instructions string `json:"instructions"`
	WordCount    int    `json:"word_count"`
}

// WriterGenerate drafts an essay grounded in a ready document, billed one
// page per 250 realized words.
func (a *App) WriterGenerate(w http.ResponseWriter, r *http.Request) {
	var req writerGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.WordCount <= 0 {
		a.error(w, http.StatusBadRequest, "invalid_argument", "word_count must be positive")
		return
	}
	accountID, doc, ok := a.preflight(w, r, domain.StudyAidWriter, func(*domain.Document) int { return req.WordCount })
	if !ok {
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	started := time.Now()
	result, err := a.Provider.Write(r.Context(), llm.WriterRequest{
		Title:        doc.Title,
		DocumentText: doc.ExtractedText,
		Instructions: req.Instructions,
		WordCount:    req.WordCount,
		Locale:       locale,
	})
	if err != nil {
		a.providerError(w, domain.StudyAidWriter, err)
		return
	}
	realized := result.WordCount
	if realized > req.WordCount {
		realized = req.WordCount
	}
	a.settle(w, r, accountID, doc, domain.StudyAidWriter, locale, result.Provider, realized, result, started)
}

type translationGenerateRequest struct {
	TargetLanguage string `json:"target_language"`
}

// TranslationGenerate translates a ready document into a target language,
// billed one page per document page.
func (a *App) TranslationGenerate(w http.ResponseWriter, r *http.Request) {
	var req translationGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	tag, languageName, err := llm.NormalizeTargetLanguage(req.TargetLanguage)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_argument", "unsupported target language")
		return
	}
	accountID, doc, ok := a.preflight(w, r, domain.StudyAidTranslation, func(d *domain.Document) int { return d.PageCount })
	if !ok {
		return
	}
	started := time.Now()
	result, err := a.Provider.Translate(r.Context(), llm.TranslationRequest{
		Title:          doc.Title,
		DocumentText:   doc.ExtractedText,
		TargetLanguage: tag,
		LanguageName:   languageName,
	})
	if err != nil {
		a.providerError(w, domain.StudyAidTranslation, err)
		return
	}
	a.settle(w, r, accountID, doc, domain.StudyAidTranslation, tag, result.Provider, doc.PageCount, result, started)
}

// StudyAidList returns all study aids generated from a document.
func (a *App) StudyAidList(w http.ResponseWriter, r *http.Request) {
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
	aids, err := a.StudyAids.ListByDocument(r.Context(), docID, accountID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	out := make([]studyAidResponse, 0, len(aids))
	for i := range aids {
		aid := &aids[i]
		out = append(out, studyAidResponse{
			ID:           aid.ID,
			DocumentID:   aid.DocumentID,
			Kind:         string(aid.Kind),
			Language:     aid.Language,
			Provider:     aid.Provider,
			PagesCharged: aid.PagesCharged,
			Payload:      json.RawMessage(aid.Payload),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"study_aids": out})
}

// StudyAidExport packs every study aid generated from a document into a zip
// archive for offline use. Exports are free; nothing is deducted.
func (a *App) StudyAidExport(w http.ResponseWriter, r *http.Request) {
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
	aids, err := a.StudyAids.ListByDocument(r.Context(), docID, accountID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	if len(aids) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no study aids to export")
		return
	}

	entries := make([]zippkg.Entry, 0, len(aids))
	for i := range aids {
		aid := &aids[i]
		entries = append(entries, exportEntry(aid))
	}
	archive, err := zippkg.Archive(entries)
	if err != nil {
		a.Logger.Error().Err(err).Str("document_id", docID).Msg("build export archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Title+"-study-aids.zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// exportEntry renders a study aid as an archive file: prose kinds become
// markdown, structured kinds stay JSON.
func exportEntry(aid *domain.StudyAid) zippkg.Entry {
	short := aid.ID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("%s-%s", aid.Kind, short)
	switch aid.Kind {
	case domain.StudyAidSummary:
		var payload struct {
			Summary   string   `json:"summary"`
			KeyPoints []string `json:"key_points"`
		}
		if json.Unmarshal(aid.Payload, &payload) == nil {
			body := "# Summary\n\n" + payload.Summary + "\n"
			for _, point := range payload.KeyPoints {
				body += "\n- " + point
			}
			return zippkg.Entry{Name: name + ".md", Data: []byte(body)}
		}
	case domain.StudyAidWriter:
		var payload struct {
			Content string `json:"content"`
		}
		if json.Unmarshal(aid.Payload, &payload) == nil {
			return zippkg.Entry{Name: name + ".md", Data: []byte(payload.Content)}
		}
	case domain.StudyAidTranslation:
		var payload struct {
			Translation string `json:"translation"`
		}
		if json.Unmarshal(aid.Payload, &payload) == nil {
			return zippkg.Entry{Name: name + ".md", Data: []byte(payload.Translation)}
		}
	}
	return zippkg.Entry{Name: name + ".json", Data: aid.Payload}
}
