package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/seonyeomin-rgb/md-feedback/internal/annotation"
	"github.com/seonyeomin-rgb/md-feedback/internal/docservice"
	"github.com/seonyeomin-rgb/md-feedback/internal/testutil"
)

// testEnv sets up a temp docs dir, SQLite DB, service, and router.
// An empty authToken means auth disabled.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()
	docsDir, store := testutil.TestDocs(t)
	db := testutil.TestDB(t)
	svc := docservice.NewService(store, db)
	router := NewRouter(svc, authToken != "", authToken, nil, docsDir)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/documents", map[string]string{
		"path":    "reviews/auth.md",
		"content": "# Auth Review\nprose line\n",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/documents/reviews/auth.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Path != "reviews/auth.md" {
		t.Errorf("path = %q", doc.Path)
	}
	if doc.Title != "Auth Review" {
		t.Errorf("title = %q, want Auth Review", doc.Title)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")

	payload := map[string]string{"path": "dup.md", "content": "a"}
	if w := doJSON(t, router, http.MethodPost, "/documents", payload); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/documents", payload); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/documents", map[string]string{"path": "lock.md", "content": "# v1\n"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	var created DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	// Stale checksum conflicts.
	body, _ := json.Marshal(map[string]string{"content": "# v2\n"})
	req := httptest.NewRequest(http.MethodPut, "/documents/lock.md", bytes.NewReader(body))
	req.Header.Set("If-Match", "bogus")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", rec.Code)
	}

	// Matching checksum succeeds (quoted ETag form accepted).
	req = httptest.NewRequest(http.MethodPut, "/documents/lock.md", bytes.NewReader(body))
	req.Header.Set("If-Match", `"`+created.Checksum+`"`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("update = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteDocument(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/documents", map[string]string{"path": "del.md", "content": "x"})

	if w := doJSON(t, router, http.MethodDelete, "/documents/del.md", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/documents/del.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestMemoLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/documents", map[string]string{
		"path":    "rev.md",
		"content": "# Rev\nflagged line\nmore prose\n",
	})

	// Add a memo anchored to body line 2.
	w := doJSON(t, router, http.MethodPost, "/memos", AddMemoRequest{
		Path: "rev.md",
		Memo: annotation.Memo{ID: "m1", Type: annotation.TypeFix, Text: "needs work"},
		Line: 2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add memo = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if len(doc.Memos) != 1 || !strings.HasPrefix(doc.Memos[0].Anchor, "L2|") {
		t.Errorf("memos = %+v, want one anchored at L2", doc.Memos)
	}

	// Flip its status.
	w = doJSON(t, router, http.MethodPut, "/memos/status", SetMemoStatusRequest{
		Path: "rev.md", ID: "m1", Status: annotation.StatusDone,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set status = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Memos[0].Status != annotation.StatusDone {
		t.Errorf("status = %q, want done", doc.Memos[0].Status)
	}

	// Delete it.
	w = doJSON(t, router, http.MethodDelete, "/memos?path=rev.md&id=m1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete memo = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if len(doc.Memos) != 0 {
		t.Errorf("memos after delete = %+v", doc.Memos)
	}

	// Unknown memo id is a 404.
	w = doJSON(t, router, http.MethodPut, "/memos/status", SetMemoStatusRequest{
		Path: "rev.md", ID: "nope", Status: annotation.StatusDone,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown memo = %d, want 404", w.Code)
	}
}

func TestCursorAndCheckpoint(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/documents", map[string]string{
		"path":    "plan.md",
		"content": "# Plan\n## Phase 1\nprose\n",
	})

	w := doJSON(t, router, http.MethodPut, "/cursor", SetCursorRequest{
		Path:   "plan.md",
		Cursor: annotation.Cursor{TaskID: "t1", Step: "3", NextAction: "verify tokens"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set cursor = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Cursor == nil || doc.Cursor.TaskID != "t1" {
		t.Errorf("cursor = %+v, want taskId t1", doc.Cursor)
	}

	w = doJSON(t, router, http.MethodPost, "/checkpoints", CreateCheckpointRequest{Path: "plan.md", Note: "wrap up"})
	if w.Code != http.StatusCreated {
		t.Fatalf("checkpoint = %d, body = %s", w.Code, w.Body.String())
	}
	var cp annotation.Checkpoint
	_ = json.Unmarshal(w.Body.Bytes(), &cp)
	if cp.ID == "" || cp.Note != "wrap up" {
		t.Errorf("checkpoint = %+v", cp)
	}
}

func TestGateEvaluationEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	content := "# D\n" +
		"prose\n" +
		"<!-- USER_MEMO id=\"m1\" color=\"red\" : fix this -->\n" +
		"<!-- GATE\n" +
		"  id=\"g1\"\n" +
		"  type=\"merge\"\n" +
		"  blockedBy=\"m1\"\n" +
		"-->\n"
	doJSON(t, router, http.MethodPost, "/documents", map[string]string{"path": "g.md", "content": content})

	w := doJSON(t, router, http.MethodPost, "/gates/evaluate", EvaluateGatesRequest{Path: "g.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Gates []annotation.Gate `json:"gates"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Gates) != 1 || resp.Gates[0].Status != annotation.GateBlocked {
		t.Errorf("gates = %+v, want g1 blocked", resp.Gates)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	content := "# D\n## Auth\nprose\n<!-- USER_MEMO id=\"m1\" color=\"blue\" : why? -->\n"
	doJSON(t, router, http.MethodPost, "/documents", map[string]string{"path": "s.md", "content": content})

	w := doJSON(t, router, http.MethodGet, "/status?path=s.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st docservice.StatusReport
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Counts.Questions != 1 || st.OpenMemos != 1 {
		t.Errorf("report = %+v, want 1 question 1 open", st)
	}
}

func TestListAndSearch(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/documents", map[string]string{"path": "a.md", "content": "# A\nxylophone prose\n"})
	doJSON(t, router, http.MethodPost, "/documents", map[string]string{"path": "b.md", "content": "# B\nplain\n"})

	w := doJSON(t, router, http.MethodGet, "/documents?sort=path", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var list DocListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 2 || len(list.Documents) != 2 {
		t.Errorf("list = %+v, want 2 documents", list)
	}

	w = doJSON(t, router, http.MethodGet, "/search?q=xylophone", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var results struct {
		Results []struct {
			Path string `json:"Path"`
		} `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &results)
	if len(results.Results) != 1 || results.Results[0].Path != "a.md" {
		t.Errorf("search results = %+v, want a.md", results)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAttachmentUpload(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "shot.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(fw, "fake png bytes")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["filename"] != "shot.png" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMoveDocumentEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPost, "/documents", map[string]string{
		"path": "old.md", "content": "# Old\nprose\n",
	})

	w := doJSON(t, router, http.MethodPost, "/documents/move", map[string]string{
		"oldPath": "old.md", "newPath": "reviews/new.md",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, router, http.MethodGet, "/documents/old.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("old path status = %d, want 404", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/documents/reviews/new.md", nil); w.Code != http.StatusOK {
		t.Errorf("new path status = %d, want 200", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/documents/move", map[string]string{
		"oldPath": "nope.md", "newPath": "x.md",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing source status = %d, want 404", w.Code)
	}
}

func TestServeAttachment_TraversalBlocked(t *testing.T) {
	// multipart strips directories from part filenames, so the traversal
	// guard is only reachable on the serving path.
	ah := NewAttachmentHandler(t.TempDir())
	r := chi.NewRouter()
	r.Get("/attachments/{filename}", ah.ServeFile)

	for _, name := range []string{"../secret.md", "../../etc/passwd"} {
		req := httptest.NewRequest(http.MethodGet, "/attachments/"+name, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		// chi may not route the traversal paths at all (404), or the
		// handler rejects them (400). Either way, never 200.
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}

func TestAttachmentSafeName_RejectsTraversal(t *testing.T) {
	ah := NewAttachmentHandler(t.TempDir())
	for _, name := range []string{"", "../escape.png", "a/b.png", "..", "./../x.png"} {
		if _, err := ah.safeName(name); err == nil {
			t.Errorf("safeName(%q) accepted, want error", name)
		}
	}
	if _, err := ah.safeName("shot.png"); err != nil {
		t.Errorf("safeName(shot.png) rejected: %v", err)
	}
}
