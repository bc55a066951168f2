package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sideline/internal/api"
	"sideline/internal/testsupport"
)

func testServer(t *testing.T) *apiServer {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	return &apiServer{
		svc:    api.NewService(st),
		intake: api.NewIntake(st),
	}
}

func TestAPIServerSubmitAndList(t *testing.T) {
	srv := testServer(t)

	body := `{"organizationId":"org-1","coachId":"coach-1","text":"great effort at training"}`
	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSubmit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body %s", w.Code, w.Body.String())
	}
	var created api.ArtifactView
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if created.ArtifactID == "" || created.Stage != "received" {
		t.Fatalf("created = %+v", created)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/artifacts?stage=received", nil)
	w = httptest.NewRecorder()
	srv.handleArtifacts(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list api.ArtifactListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(list.Artifacts) != 1 || list.Artifacts[0].ArtifactID != created.ArtifactID {
		t.Fatalf("artifacts = %+v", list.Artifacts)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/artifacts/"+created.ArtifactID, nil)
	w = httptest.NewRecorder()
	srv.handleArtifactDetail(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d", w.Code)
	}
	var detail api.ArtifactDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail.Events) != 1 || detail.Events[0].Type != "artifact_received" {
		t.Fatalf("events = %+v", detail.Events)
	}
}

func TestAPIServerSubmitRejectsBadInput(t *testing.T) {
	srv := testServer(t)

	for _, body := range []string{
		`{"organizationId":"org-1","coachId":"coach-1"}`,
		`{"organizationId":"org-1","coachId":"coach-1","text":"x","audioPath":"/a.ogg"}`,
		`{"coachId":"coach-1","text":"x"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.handleSubmit(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q status = %d", body, w.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("valid token status = %d", w.Code)
	}
}
