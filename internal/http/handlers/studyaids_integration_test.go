package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"cramdesk/internal/adapter/repo"
	"cramdesk/internal/domain"
	"cramdesk/internal/http/handlers"
	"cramdesk/internal/http/httpapi"
	"cramdesk/internal/infra"
	"cramdesk/internal/middleware"
	"cramdesk/internal/providers/llm"
	"cramdesk/internal/quota"
	"cramdesk/internal/sqlinline"
	"cramdesk/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type testDocument struct {
	ID            string
	AccountID     string
	Title         string
	StorageKey    string
	Language      string
	PageCount     int
	Status        domain.DocumentStatus
	ExtractedText string
}

type savedAid struct {
	ID           string
	AccountID    string
	DocumentID   string
	Kind         string
	PagesCharged int
	Payload      []byte
	Provider     string
}

type usageEvent struct {
	AccountID      string
	Kind           string
	Allowed        bool
	Reason         string
	PagesCharged   int
	PagesRemaining int
}

type fakeSQLRunner struct {
	mu          sync.Mutex
	documents   map[string]*testDocument
	aidSeq      int
	aids        []savedAid
	usageEvents []usageEvent
}

func newFakeSQLRunner() *fakeSQLRunner {
	return &fakeSQLRunner{documents: make(map[string]*testDocument)}
}

func (f *fakeSQLRunner) addDocument(doc testDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[doc.ID] = &doc
}

func (f *fakeSQLRunner) recordedUsage() []usageEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]usageEvent(nil), f.usageEvents...)
}

func (f *fakeSQLRunner) savedAids() []savedAid {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedAid(nil), f.aids...)
}

func (f *fakeSQLRunner) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch query {
	case sqlinline.QInsertUsageEvent:
		if len(args) != 7 {
			return pgconn.CommandTag{}, fmt.Errorf("unexpected args for usage event: %d", len(args))
		}
		accountID, _ := args[0].(string)
		kind, _ := args[2].(string)
		allowed, _ := args[3].(bool)
		reason, _ := args[4].(string)
		charged, _ := args[5].(int)
		remaining, _ := args[6].(int)
		f.usageEvents = append(f.usageEvents, usageEvent{
			AccountID:      accountID,
			Kind:           kind,
			Allowed:        allowed,
			Reason:         reason,
			PagesCharged:   charged,
			PagesRemaining: remaining,
		})
		return pgconn.CommandTag{}, nil
	default:
		return pgconn.CommandTag{}, fmt.Errorf("unexpected exec query: %s", query)
	}
}

func (f *fakeSQLRunner) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch query {
	case sqlinline.QSelectDocumentForAccount:
		docID, _ := args[0].(string)
		accountID, _ := args[1].(string)
		doc, ok := f.documents[docID]
		if !ok || doc.AccountID != accountID {
			return handlers.NewSimpleRow(nil)
		}
		d := *doc
		now := time.Now()
		return handlers.NewSimpleRow(func(dest ...any) error {
			return scanInto(dest,
				d.ID, d.AccountID, d.Title, d.StorageKey, d.Language,
				d.PageCount, d.Status, d.ExtractedText, "", now, now)
		})
	case sqlinline.QInsertDocument:
		accountID, _ := args[0].(string)
		title, _ := args[1].(string)
		storageKey, _ := args[2].(string)
		language, _ := args[3].(string)
		f.aidSeq++
		id := uuid.NewString()
		f.documents[id] = &testDocument{
			ID:         id,
			AccountID:  accountID,
			Title:      title,
			StorageKey: storageKey,
			Language:   language,
			Status:     domain.DocumentStatusUploaded,
		}
		return handlers.NewSimpleRow(func(dest ...any) error {
			return scanInto(dest, id)
		})
	case sqlinline.QInsertStudyAid:
		f.aidSeq++
		id := fmt.Sprintf("aid-%d", f.aidSeq)
		accountID, _ := args[0].(string)
		documentID, _ := args[1].(string)
		kind := fmt.Sprint(args[2])
		charged, _ := args[4].(int)
		payload, _ := args[5].([]byte)
		provider, _ := args[6].(string)
		f.aids = append(f.aids, savedAid{
			ID:           id,
			AccountID:    accountID,
			DocumentID:   documentID,
			Kind:         kind,
			PagesCharged: charged,
			Payload:      append([]byte(nil), payload...),
			Provider:     provider,
		})
		return handlers.NewSimpleRow(func(dest ...any) error {
			return scanInto(dest, id)
		})
	default:
		return handlers.NewSimpleRow(func(dest ...any) error {
			return fmt.Errorf("unexpected query row: %s", query)
		})
	}
}

func (f *fakeSQLRunner) Query(_ context.Context, query string, _ ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unexpected query: %s", query)
}

// scanInto copies values into pgx scan destinations, mirroring the narrow set
// of column types the repositories read.
func scanInto(dest []any, vals ...any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations, %d values", len(dest), len(vals))
	}
	for i, v := range vals {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		elem := dv.Elem()
		if v == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		sv := reflect.ValueOf(v)
		if !sv.Type().ConvertibleTo(elem.Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", v, elem.Type())
		}
		elem.Set(sv.Convert(elem.Type()))
	}
	return nil
}

func newTestApp(runner *fakeSQLRunner, store *quota.MemoryStore) *handlers.App {
	cfg := &infra.Config{
		AppEnv:              "test",
		JWTSecret:           "test-secret",
		RateLimitPerMin:     100,
		TrialPages:          20,
		LowBalanceThreshold: 5,
		MaxUploadBytes:      25 << 20,
		AllowedOrigins:      []string{"http://localhost:3000"},
	}
	logger := infra.NewLogger("test")
	return &handlers.App{
		Config:    cfg,
		Logger:    logger,
		SQL:       runner,
		Accounts:  repo.NewAccountRepository(runner),
		Documents: repo.NewDocumentRepository(runner),
		StudyAids: repo.NewStudyAidRepository(runner),
		Ledger:    quota.NewLedger(store, logger),
		Provider:  llm.NewStaticProvider(),
		JWTSecret: cfg.JWTSecret,
	}
}

func trialAccount(id string, pagesRemaining int, trialEndsAt time.Time) *domain.Account {
	return &domain.Account{
		ID:                 id,
		Email:              "student@example.com",
		Plan:               domain.PlanTierTrial,
		SubscriptionStatus: domain.SubscriptionTrialing,
		TrialEndsAt:        &trialEndsAt,
		PagesRemaining:     pagesRemaining,
	}
}

func newToken(t *testing.T, secret, accountID string) string {
	t.Helper()
	token, err := middleware.SignJWT(secret, accountID, "trial", "en")
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return token
}

func postJSON(t *testing.T, router http.Handler, token, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestQuizGenerateFlow(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	docID := uuid.NewString()
	store.Put(trialAccount(accountID, 10, time.Now().Add(24*time.Hour)))
	runner.addDocument(testDocument{
		ID:            docID,
		AccountID:     accountID,
		Title:         "Linear Algebra",
		StorageKey:    "documents/key.pdf",
		Language:      "en",
		PageCount:     12,
		Status:        domain.DocumentStatusReady,
		ExtractedText: "Vectors. Matrices. Eigenvalues.",
	})

	app := newTestApp(runner, store)
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	res := postJSON(t, router, token, "/v1/documents/"+docID+"/quiz", map[string]any{"question_count": 12})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}

	var out struct {
		Kind           string `json:"kind"`
		PagesCharged   int    `json:"pages_charged"`
		PagesRemaining int    `json:"pages_remaining"`
		Payload        struct {
			Questions []domain.QuizQuestion `json:"questions"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Kind != "quiz" {
		t.Fatalf("kind = %q, want quiz", out.Kind)
	}
	if out.PagesCharged != 3 {
		t.Fatalf("pages charged = %d, want 3", out.PagesCharged)
	}
	if out.PagesRemaining != 7 {
		t.Fatalf("pages remaining = %d, want 7", out.PagesRemaining)
	}
	if len(out.Payload.Questions) != 12 {
		t.Fatalf("question count = %d, want 12", len(out.Payload.Questions))
	}

	account, err := store.Read(context.Background(), accountID)
	if err != nil {
		t.Fatalf("read account: %v", err)
	}
	if account.PagesRemaining != 7 {
		t.Fatalf("stored balance = %d, want 7", account.PagesRemaining)
	}

	aids := runner.savedAids()
	if len(aids) != 1 {
		t.Fatalf("saved aids = %d, want 1", len(aids))
	}
	if aids[0].Kind != "quiz" || aids[0].PagesCharged != 3 {
		t.Fatalf("saved aid = %+v", aids[0])
	}

	events := runner.recordedUsage()
	if len(events) != 1 {
		t.Fatalf("usage events = %d, want 1", len(events))
	}
	if !events[0].Allowed || events[0].PagesCharged != 3 || events[0].PagesRemaining != 7 {
		t.Fatalf("usage event = %+v", events[0])
	}
}

func TestQuizGenerateInsufficientPages(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	docID := uuid.NewString()
	store.Put(trialAccount(accountID, 1, time.Now().Add(24*time.Hour)))
	runner.addDocument(testDocument{
		ID:        docID,
		AccountID: accountID,
		Title:     "Chemistry",
		PageCount: 3,
		Status:    domain.DocumentStatusReady,
	})

	app := newTestApp(runner, store)
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	res := postJSON(t, router, token, "/v1/documents/"+docID+"/quiz", map[string]any{"question_count": 12})
	if res.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402: %s", res.Code, res.Body.String())
	}
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Error != "insufficient_pages" {
		t.Fatalf("error = %q, want insufficient_pages", out.Error)
	}

	account, err := store.Read(context.Background(), accountID)
	if err != nil {
		t.Fatalf("read account: %v", err)
	}
	if account.PagesRemaining != 1 {
		t.Fatalf("balance = %d, want untouched 1", account.PagesRemaining)
	}

	events := runner.recordedUsage()
	if len(events) != 1 || events[0].Allowed {
		t.Fatalf("expected one denied usage event, got %+v", events)
	}
	if events[0].Reason != "insufficient_pages" {
		t.Fatalf("reason = %q, want insufficient_pages", events[0].Reason)
	}
	if len(runner.savedAids()) != 0 {
		t.Fatal("no aid should be saved on denial")
	}
}

func TestGenerateWithExpiredTrial(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	docID := uuid.NewString()
	// A large balance does not rescue an expired trial.
	store.Put(trialAccount(accountID, 1000, time.Now().Add(-time.Hour)))
	runner.addDocument(testDocument{
		ID:        docID,
		AccountID: accountID,
		Title:     "History",
		PageCount: 2,
		Status:    domain.DocumentStatusReady,
	})

	app := newTestApp(runner, store)
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	res := postJSON(t, router, token, "/v1/documents/"+docID+"/summary", map[string]any{})
	if res.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402: %s", res.Code, res.Body.String())
	}
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Error != "subscription_expired" {
		t.Fatalf("error = %q, want subscription_expired", out.Error)
	}
}

func TestGenerateDocumentNotReady(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	docID := uuid.NewString()
	store.Put(trialAccount(accountID, 10, time.Now().Add(24*time.Hour)))
	runner.addDocument(testDocument{
		ID:        docID,
		AccountID: accountID,
		Title:     "Physics",
		Status:    domain.DocumentStatusUploaded,
	})

	app := newTestApp(runner, store)
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	res := postJSON(t, router, token, "/v1/documents/"+docID+"/quiz", map[string]any{"question_count": 5})
	if res.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", res.Code, res.Body.String())
	}
}

func TestSummaryBillsDocumentPages(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	docID := uuid.NewString()
	store.Put(trialAccount(accountID, 10, time.Now().Add(24*time.Hour)))
	runner.addDocument(testDocument{
		ID:            docID,
		AccountID:     accountID,
		Title:         "Biology",
		PageCount:     4,
		Status:        domain.DocumentStatusReady,
		ExtractedText: "Cells divide. Proteins fold. Enzymes catalyze.",
	})

	app := newTestApp(runner, store)
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	res := postJSON(t, router, token, "/v1/documents/"+docID+"/summary", map[string]any{})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	var out struct {
		PagesCharged   int `json:"pages_charged"`
		PagesRemaining int `json:"pages_remaining"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.PagesCharged != 4 {
		t.Fatalf("pages charged = %d, want 4", out.PagesCharged)
	}
	if out.PagesRemaining != 6 {
		t.Fatalf("pages remaining = %d, want 6", out.PagesRemaining)
	}
}

func TestWriterBillsRealizedWords(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	docID := uuid.NewString()
	store.Put(trialAccount(accountID, 20, time.Now().Add(24*time.Hour)))
	runner.addDocument(testDocument{
		ID:            docID,
		AccountID:     accountID,
		Title:         "Economics",
		PageCount:     8,
		Status:        domain.DocumentStatusReady,
		ExtractedText: "Supply meets demand.",
	})

	app := newTestApp(runner, store)
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	res := postJSON(t, router, token, "/v1/documents/"+docID+"/writer", map[string]any{
		"instructions": "argue both sides",
		"word_count":   1500,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	var out struct {
		PagesCharged   int `json:"pages_charged"`
		PagesRemaining int `json:"pages_remaining"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// 1500 words at 250 words per page.
	if out.PagesCharged != 6 {
		t.Fatalf("pages charged = %d, want 6", out.PagesCharged)
	}
	if out.PagesRemaining != 14 {
		t.Fatalf("pages remaining = %d, want 14", out.PagesRemaining)
	}
}

func TestTranslationRejectsInvalidLanguage(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	docID := uuid.NewString()
	store.Put(trialAccount(accountID, 10, time.Now().Add(24*time.Hour)))
	runner.addDocument(testDocument{
		ID:        docID,
		AccountID: accountID,
		Title:     "Latin",
		PageCount: 2,
		Status:    domain.DocumentStatusReady,
	})

	app := newTestApp(runner, store)
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	res := postJSON(t, router, token, "/v1/documents/"+docID+"/translation", map[string]any{
		"target_language": "not a language!",
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", res.Code, res.Body.String())
	}
	if len(runner.recordedUsage()) != 0 {
		t.Fatal("invalid language must not reach the ledger")
	}
}

func TestGenerateRequiresAuth(t *testing.T) {
	runner := newFakeSQLRunner()
	app := newTestApp(runner, quota.NewMemoryStore())
	router := httpapi.NewRouter(app, nil)

	body := bytes.NewReader([]byte(`{"question_count":5}`))
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/"+uuid.NewString()+"/quiz", body)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}

func TestDocumentUpload(t *testing.T) {
	runner := newFakeSQLRunner()
	store := quota.NewMemoryStore()
	accountID := uuid.NewString()
	store.Put(trialAccount(accountID, 20, time.Now().Add(24*time.Hour)))

	app := newTestApp(runner, store)
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	app.Files = files
	router := httpapi.NewRouter(app, nil)
	token := newToken(t, app.JWTSecret, accountID)

	t.Run("accepts_pdf", func(t *testing.T) {
		res := uploadFile(t, router, token, "notes.pdf", []byte("%PDF-1.7 fake body"))
		if res.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202: %s", res.Code, res.Body.String())
		}
		var out struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if out.Title != "notes" {
			t.Fatalf("title = %q, want notes", out.Title)
		}
		if out.Status != "uploaded" {
			t.Fatalf("status = %q, want uploaded", out.Status)
		}
	})

	t.Run("rejects_non_pdf", func(t *testing.T) {
		res := uploadFile(t, router, token, "notes.txt", []byte("plain text"))
		if res.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("status = %d, want 415: %s", res.Code, res.Body.String())
		}
	})
}

func uploadFile(t *testing.T, router http.Handler, token, filename string, contents []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(contents); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}
