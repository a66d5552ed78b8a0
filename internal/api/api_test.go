package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"actas/internal/api"
	"actas/internal/audit"
	"actas/internal/config"
	"actas/internal/document"
	"actas/internal/lifecycle"
	"actas/internal/rbac"
	"actas/internal/session"
	"actas/internal/store"
	"actas/internal/testsupport"
)

type testAPI struct {
	cfg      *config.Config
	store    *store.Store
	router   *gin.Engine
	admin    *rbac.User
	editor   *rbac.User
	approver *rbac.User
	reader   *rbac.User
}

func newTestAPI(t *testing.T, opts ...testsupport.ConfigOption) *testAPI {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	recorder := audit.NewRecorder(st, nil)
	handler := api.NewHandler(cfg, st, lifecycle.NewManager(st, recorder, nil), session.NewManager(st), recorder, nil)
	return &testAPI{
		cfg:      cfg,
		store:    st,
		router:   handler.Router(),
		admin:    testsupport.NewUser(t, st, "Root Admin", "admin@example.org", store.RoleIDAdministrator),
		editor:   testsupport.NewUser(t, st, "Ana Torres", "ana@example.org", store.RoleIDEditor),
		approver: testsupport.NewUser(t, st, "Luis Vega", "luis@example.org", store.RoleIDApprover),
		reader:   testsupport.NewUser(t, st, "Rita Sol", "rita@example.org", store.RoleIDReader),
	}
}

func (a *testAPI) do(t *testing.T, method, path string, actor *rbac.User, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set(api.ActorHeader, actor.ID)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d: %s", w.Code, w.Body.String())
	}
}

func TestMe(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/api/v1/me", a.editor, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me = %d: %s", w.Code, w.Body.String())
	}
	me := decode[map[string]any](t, w)
	if me["id"] != a.editor.ID {
		t.Fatalf("me = %+v", me)
	}
	caps, _ := me["capabilities"].([]any)
	if len(caps) == 0 {
		t.Fatal("capabilities empty")
	}

	if w := a.do(t, http.MethodGet, "/api/v1/me", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me = %d", w.Code)
	}
}

func TestBearerToken(t *testing.T) {
	a := newTestAPI(t, func(cfg *config.Config) {
		cfg.Paths.APIToken = "secret"
	})
	if w := a.do(t, http.MethodGet, "/api/v1/me", a.admin, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", strings.NewReader(""))
	req.Header.Set(api.ActorHeader, a.admin.ID)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with token = %d: %s", w.Code, w.Body.String())
	}
}

func TestDocumentLifecycleOverAPI(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/documents", a.editor,
		`{"title":"Budget Minutes","meeting_date":"2026-04-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	created := decode[document.Document](t, w)

	w = a.do(t, http.MethodPost, "/api/v1/documents/"+created.ID+"/submit", a.editor,
		`{"approver_ids":["`+a.approver.ID+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", w.Code, w.Body.String())
	}

	// Readers cannot approve.
	w = a.do(t, http.MethodPost, "/api/v1/documents/"+created.ID+"/approve", a.reader, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("reader approve = %d", w.Code)
	}

	w = a.do(t, http.MethodPost, "/api/v1/documents/"+created.ID+"/approve", a.approver, "")
	if w.Code != http.StatusOK {
		t.Fatalf("approve = %d: %s", w.Code, w.Body.String())
	}
	result := decode[map[string]any](t, w)
	if result["fully_approved"] != true {
		t.Fatalf("approve result = %+v", result)
	}

	w = a.do(t, http.MethodPost, "/api/v1/documents/"+created.ID+"/publish", a.editor,
		`{"visibility":"public"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("publish = %d: %s", w.Code, w.Body.String())
	}
	published := decode[document.Document](t, w)
	if published.Status != document.StatusPublished || published.Version != 3 {
		t.Fatalf("published = %s v%d", published.Status, published.Version)
	}

	// A reader now sees the public document.
	w = a.do(t, http.MethodGet, "/api/v1/documents/"+created.ID, a.reader, "")
	if w.Code != http.StatusOK {
		t.Fatalf("reader get = %d", w.Code)
	}
}

func TestLifecycleErrorsMapToStatuses(t *testing.T) {
	a := newTestAPI(t)
	doc := testsupport.NewDraftDocument(t, a.store, a.editor.ID, "Draft")

	w := a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/submit", a.editor,
		`{"approver_ids":["`+a.approver.ID+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/reject", a.approver, `{"reason":""}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty reason = %d: %s", w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodPost, "/api/v1/documents/missing/approve", a.approver, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing document = %d", w.Code)
	}

	w = a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/publish", a.editor, `{"visibility":"public"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("publish pending = %d: %s", w.Code, w.Body.String())
	}
}

func TestListDocumentsFiltersByVisibility(t *testing.T) {
	a := newTestAPI(t)
	testsupport.NewDraftDocument(t, a.store, a.editor.ID, "Hidden Draft")

	published := testsupport.NewDraftDocument(t, a.store, a.editor.ID, "Public Minutes")
	published.Status = document.StatusPublished
	published.Visibility = document.VisibilityPublic
	if err := a.store.UpdateDocument(context.Background(), published); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}

	w := a.do(t, http.MethodGet, "/api/v1/documents", a.reader, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	docs := decode[[]document.Document](t, w)
	if len(docs) != 1 || docs[0].Title != "Public Minutes" {
		t.Fatalf("reader sees %+v", docs)
	}

	w = a.do(t, http.MethodGet, "/api/v1/documents", a.admin, "")
	docs = decode[[]document.Document](t, w)
	if len(docs) != 2 {
		t.Fatalf("admin sees %d documents", len(docs))
	}
}

func TestRoleManagement(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/roles", a.admin,
		`{"name":"Archivist","permissions":["view_repository","view_audit_log"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create role = %d: %s", w.Code, w.Body.String())
	}
	role := decode[map[string]any](t, w)
	roleID, _ := role["id"].(string)

	w = a.do(t, http.MethodPost, "/api/v1/roles", a.admin, `{"name":"Bad","permissions":["fly"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown permission = %d", w.Code)
	}

	// Assign, then deletion is refused.
	w = a.do(t, http.MethodPut, "/api/v1/users/"+a.reader.ID, a.admin,
		`{"name":"Rita Sol","email":"rita@example.org","role_ids":["`+roleID+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("assign role = %d: %s", w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodDelete, "/api/v1/roles/"+roleID, a.admin, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("delete assigned role = %d: %s", w.Code, w.Body.String())
	}

	// Editors cannot manage roles.
	w = a.do(t, http.MethodGet, "/api/v1/roles", a.editor, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("editor roles = %d", w.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/documents", a.editor, `{"title":"Doc"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	w = a.do(t, http.MethodGet, "/api/v1/audit", a.admin, "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit = %d", w.Code)
	}
	entries := decode[[]audit.Entry](t, w)
	if len(entries) == 0 || entries[0].Action != audit.ActionDocumentCreated {
		t.Fatalf("entries = %+v", entries)
	}

	if w := a.do(t, http.MethodGet, "/api/v1/audit", a.reader, ""); w.Code != http.StatusForbidden {
		t.Fatalf("reader audit = %d", w.Code)
	}
}

func TestUpdateDocumentKeepsVersion(t *testing.T) {
	a := newTestAPI(t)
	doc := testsupport.NewDraftDocument(t, a.store, a.editor.ID, "First Title")

	w := a.do(t, http.MethodPut, "/api/v1/documents/"+doc.ID, a.editor,
		`{"title":"Second Title","tags":["budget"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", w.Code, w.Body.String())
	}
	updated := decode[document.Document](t, w)
	if updated.Title != "Second Title" || updated.Version != 1 {
		t.Fatalf("updated = %q v%d", updated.Title, updated.Version)
	}

	// Other users without edit rights cannot save the draft.
	if w := a.do(t, http.MethodPut, "/api/v1/documents/"+doc.ID, a.reader, `{"title":"X"}`); w.Code != http.StatusForbidden {
		t.Fatalf("reader update = %d", w.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	a := newTestAPI(t)
	first := testsupport.NewDraftDocument(t, a.store, a.editor.ID, "First")
	second := testsupport.NewDraftDocument(t, a.store, a.editor.ID, "Second")

	w := a.do(t, http.MethodPut, "/api/v1/session", a.editor,
		`{"step":3,"document_id":"`+first.ID+`","title":"WIP"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save session = %d: %s", w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodPut, "/api/v1/session", a.editor,
		`{"step":2,"document_id":"`+second.ID+`","title":"Other"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save session = %d: %s", w.Code, w.Body.String())
	}

	// A snapshot without a document id has no durable key.
	w = a.do(t, http.MethodPut, "/api/v1/session", a.editor, `{"step":3,"title":"Orphan"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("keyless save = %d: %s", w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodGet, "/api/v1/session/"+first.ID, a.editor, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get session = %d", w.Code)
	}
	snap := decode[session.Snapshot](t, w)
	if snap.Step != 3 || snap.Title != "WIP" {
		t.Fatalf("snapshot = %+v", snap)
	}

	// One document's progress is invisible under the other's key, and both
	// show up in the caller's list.
	w = a.do(t, http.MethodGet, "/api/v1/session", a.editor, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list sessions = %d", w.Code)
	}
	if snaps := decode[[]session.Snapshot](t, w); len(snaps) != 2 {
		t.Fatalf("sessions = %+v", snaps)
	}
	if w := a.do(t, http.MethodGet, "/api/v1/session/"+first.ID, a.reader, ""); w.Code != http.StatusNotFound {
		t.Fatalf("other user's session = %d", w.Code)
	}

	if w := a.do(t, http.MethodDelete, "/api/v1/session/"+first.ID, a.editor, ""); w.Code != http.StatusOK {
		t.Fatalf("clear session = %d", w.Code)
	}
	if w := a.do(t, http.MethodGet, "/api/v1/session/"+first.ID, a.editor, ""); w.Code != http.StatusNotFound {
		t.Fatalf("session after clear = %d", w.Code)
	}
	if w := a.do(t, http.MethodGet, "/api/v1/session/"+second.ID, a.editor, ""); w.Code != http.StatusOK {
		t.Fatalf("unrelated session lost on clear = %d", w.Code)
	}
}

func TestResumeDocumentRewindsToUpload(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	doc, err := a.store.CreateDocument(ctx, &document.Document{
		Title:      "Council Meeting",
		CreatedBy:  a.editor.ID,
		WizardData: `{"step":2,"title":"Council Meeting","audio_file_name":"council.mp3"}`,
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	err = session.NewManager(a.store).Save(ctx, a.editor.ID, session.Snapshot{
		Step:          5,
		DocumentID:    doc.ID,
		Title:         "Council Meeting",
		AudioFileName: "council.mp3",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	w := a.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID+"/resume", a.editor, "")
	if w.Code != http.StatusOK {
		t.Fatalf("resume = %d: %s", w.Code, w.Body.String())
	}
	result := decode[map[string]any](t, w)
	if result["resumable"] != true {
		t.Fatalf("resume = %+v", result)
	}
	state, _ := result["state"].(map[string]any)
	if state["step"] != float64(1) {
		t.Fatalf("restored step = %v", state["step"])
	}
	if state["document_id"] != doc.ID {
		t.Fatalf("restored document id = %v", state["document_id"])
	}
	notice, _ := result["notice"].(string)
	if !strings.Contains(notice, "council.mp3") {
		t.Fatalf("notice = %q", notice)
	}

	// A draft without stored progress opens straight on its own state.
	plain := testsupport.NewDraftDocument(t, a.store, a.editor.ID, "Plain Draft")
	w = a.do(t, http.MethodGet, "/api/v1/documents/"+plain.ID+"/resume", a.editor, "")
	if w.Code != http.StatusOK {
		t.Fatalf("resume = %d: %s", w.Code, w.Body.String())
	}
	result = decode[map[string]any](t, w)
	if result["resumable"] != false {
		t.Fatalf("resume = %+v", result)
	}
	state, _ = result["state"].(map[string]any)
	if state["title"] != "Plain Draft" {
		t.Fatalf("baseline state = %+v", state)
	}

	// Drafts stay hidden from readers, resume included.
	if w := a.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID+"/resume", a.reader, ""); w.Code != http.StatusNotFound {
		t.Fatalf("reader resume = %d", w.Code)
	}
}

func TestSaveDraftResetsRejectedStatus(t *testing.T) {
	a := newTestAPI(t)
	doc := testsupport.NewDraftDocument(t, a.store, a.editor.ID, "Budget Minutes")

	w := a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/submit", a.editor,
		`{"approver_ids":["`+a.approver.ID+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/reject", a.approver,
		`{"reason":"missing detail"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("reject = %d: %s", w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodPut, "/api/v1/documents/"+doc.ID, a.editor,
		`{"title":"Budget Minutes"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save draft = %d: %s", w.Code, w.Body.String())
	}
	saved := decode[document.Document](t, w)
	if saved.Status != document.StatusDraft {
		t.Fatalf("status = %s, saving must return the document to draft", saved.Status)
	}
	if saved.RejectionReason != "" {
		t.Fatalf("rejection reason survived the save: %q", saved.RejectionReason)
	}
}

func TestPublishOpenToCreatorWithoutEditPermission(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/roles", a.admin,
		`{"name":"Author","permissions":["view_repository","create_documents"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create role = %d: %s", w.Code, w.Body.String())
	}
	roleID, _ := decode[map[string]any](t, w)["id"].(string)

	w = a.do(t, http.MethodPost, "/api/v1/users", a.admin,
		`{"name":"Pia Ruiz","email":"pia@example.org","role_ids":["`+roleID+`"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create user = %d: %s", w.Code, w.Body.String())
	}
	authorID, _ := decode[map[string]any](t, w)["id"].(string)
	author := &rbac.User{ID: authorID}

	w = a.do(t, http.MethodPost, "/api/v1/documents", author, `{"title":"Authored Minutes"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	doc := decode[document.Document](t, w)

	w = a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/submit", author,
		`{"approver_ids":["`+a.approver.ID+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/approve", a.approver, "")
	if w.Code != http.StatusOK {
		t.Fatalf("approve = %d: %s", w.Code, w.Body.String())
	}

	// The approver holds no edit capability and did not create the
	// document, so publish stays off limits.
	w = a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/publish", a.approver,
		`{"visibility":"public"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("approver publish = %d: %s", w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/publish", author,
		`{"visibility":"public"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("creator publish = %d: %s", w.Code, w.Body.String())
	}
	published := decode[document.Document](t, w)
	if published.Status != document.StatusPublished {
		t.Fatalf("status = %s", published.Status)
	}
}

func TestStatsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	testsupport.NewDraftDocument(t, a.store, a.editor.ID, "One")

	w := a.do(t, http.MethodGet, "/api/v1/stats", a.admin, "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats = %d", w.Code)
	}
	stats := decode[map[string]int](t, w)
	if stats["draft"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	if w := a.do(t, http.MethodGet, "/api/v1/stats", a.reader, ""); w.Code != http.StatusForbidden {
		t.Fatalf("reader stats = %d", w.Code)
	}
}
