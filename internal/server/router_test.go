package server_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/follow-sift/fsift/internal/server"
	"github.com/follow-sift/fsift/internal/session"
	"github.com/follow-sift/fsift/internal/storage"
)

const (
	followingJSONDocument = `{"relationships_following":[
		{"string_list_data":[{"value":"nike","timestamp":1609459200}]},
		{"string_list_data":[{"value":"adidas","timestamp":1609459200}]},
		{"string_list_data":[{"value":"friend1","timestamp":1609459200}]},
		{"string_list_data":[{"value":"friend2","timestamp":1609459200}]}
	]}`
	followersCSVDocument = "username\nfriend1\nfriend2\n"
)

type stateResponse struct {
	Step         string           `json:"step"`
	CurrentIndex int              `json:"currentIndex"`
	Current      *currentRecord   `json:"current"`
	Stats        session.Stats    `json:"stats"`
	Decisions    decisionsPayload `json:"decisions"`
	CanUndo      bool             `json:"canUndo"`
}

type currentRecord struct {
	Username string `json:"username"`
}

type decisionsPayload struct {
	Unfollow []currentRecord `json:"unfollow"`
	Keep     []currentRecord `json:"keep"`
}

func newTestRouter(t *testing.T) (http.Handler, *storage.MemoryStore) {
	t.Helper()
	gateway := storage.NewMemoryStore()
	manager := session.NewManager(session.ManagerConfig{
		Store: storage.NewEnvelopeStore(gateway, storage.SessionKey, storage.DefaultTimeToLive),
	})
	router, routerErr := server.NewRouter(server.RouterConfig{
		Manager:   manager,
		DoneStore: storage.NewDoneStore(gateway, nil),
		Clock:     func() time.Time { return time.Date(2026, time.April, 5, 10, 0, 0, 0, time.UTC) },
	})
	if routerErr != nil {
		t.Fatalf("NewRouter returned error: %v", routerErr)
	}
	return router, gateway
}

func buildAnalyzeRequest(t *testing.T, followingName string, followingBody string, followersName string, followersBody string) *http.Request {
	t.Helper()
	var requestBody bytes.Buffer
	multipartWriter := multipart.NewWriter(&requestBody)

	followingPart, followingErr := multipartWriter.CreateFormFile("following", followingName)
	if followingErr != nil {
		t.Fatalf("create following part: %v", followingErr)
	}
	if _, writeErr := followingPart.Write([]byte(followingBody)); writeErr != nil {
		t.Fatalf("write following part: %v", writeErr)
	}

	followersPart, followersErr := multipartWriter.CreateFormFile("followers", followersName)
	if followersErr != nil {
		t.Fatalf("create followers part: %v", followersErr)
	}
	if _, writeErr := followersPart.Write([]byte(followersBody)); writeErr != nil {
		t.Fatalf("write followers part: %v", writeErr)
	}

	if closeErr := multipartWriter.Close(); closeErr != nil {
		t.Fatalf("close multipart writer: %v", closeErr)
	}

	request := httptest.NewRequest(http.MethodPost, "/api/analyze", &requestBody)
	request.Header.Set("Content-Type", multipartWriter.FormDataContentType())
	return request
}

func performRequest(router http.Handler, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func performJSONRequest(t *testing.T, router http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	return performRequest(router, request)
}

func decodeState(t *testing.T, recorder *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var state stateResponse
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), &state); decodeErr != nil {
		t.Fatalf("decode state response: %v (body %s)", decodeErr, recorder.Body.String())
	}
	return state
}

func analyzeSampleUploads(t *testing.T, router http.Handler) stateResponse {
	t.Helper()
	recorder := performRequest(router, buildAnalyzeRequest(t, "following.json", followingJSONDocument, "followers.csv", followersCSVDocument))
	if recorder.Code != http.StatusOK {
		t.Fatalf("analyze status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	return decodeState(t, recorder)
}

func TestAnalyzeStartsReviewSession(t *testing.T) {
	router, _ := newTestRouter(t)
	state := analyzeSampleUploads(t, router)

	if state.Step != "swipe" {
		t.Fatalf("step = %q, want swipe", state.Step)
	}
	if state.Stats.Total != 2 || state.Stats.Processed != 0 {
		t.Fatalf("stats = %+v, want {2 0}", state.Stats)
	}
	if state.Current == nil || state.Current.Username != "adidas" {
		t.Fatalf("current = %+v, want adidas first in sorted order", state.Current)
	}
	if state.CanUndo {
		t.Fatal("a fresh session should not allow undo")
	}
}

func TestAnalyzeRejectsUnsupportedExtension(t *testing.T) {
	router, _ := newTestRouter(t)
	recorder := performRequest(router, buildAnalyzeRequest(t, "following.txt", "nike", "followers.csv", followersCSVDocument))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
	if !strings.Contains(recorder.Body.String(), "unsupported file format") {
		t.Fatalf("body lacks format message: %s", recorder.Body.String())
	}
}

func TestAnalyzeRejectsEmptyCollections(t *testing.T) {
	router, _ := newTestRouter(t)
	recorder := performRequest(router, buildAnalyzeRequest(t, "following.json", `[]`, "followers.csv", followersCSVDocument))
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
	}
}

func TestAnalyzeRejectsMissingFiles(t *testing.T) {
	router, _ := newTestRouter(t)
	request := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(""))
	recorder := performRequest(router, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestDecisionFlowThroughResults(t *testing.T) {
	router, _ := newTestRouter(t)
	analyzeSampleUploads(t, router)

	recorder := performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"unfollow"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("first decision status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	state := decodeState(t, recorder)
	if state.Stats.Processed != 1 || !state.CanUndo {
		t.Fatalf("state after first decision = %+v", state)
	}

	recorder = performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"keep"}`)
	state = decodeState(t, recorder)
	if state.Step != "results" {
		t.Fatalf("step after final decision = %q, want results", state.Step)
	}
	if len(state.Decisions.Unfollow) != 1 || state.Decisions.Unfollow[0].Username != "adidas" {
		t.Fatalf("unfollow decisions = %+v", state.Decisions.Unfollow)
	}
	if len(state.Decisions.Keep) != 1 || state.Decisions.Keep[0].Username != "nike" {
		t.Fatalf("keep decisions = %+v", state.Decisions.Keep)
	}

	recorder = performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"keep"}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("decision when complete status = %d, want %d", recorder.Code, http.StatusConflict)
	}

	recorder = performJSONRequest(t, router, http.MethodPost, "/api/session/undo", "")
	state = decodeState(t, recorder)
	if state.Step != "swipe" || state.Stats.Processed != 1 {
		t.Fatalf("state after undo = %+v", state)
	}
	if len(state.Decisions.Keep) != 0 {
		t.Fatalf("keep decisions after undo = %+v", state.Decisions.Keep)
	}
}

func TestDecisionRejectsUnknownDirection(t *testing.T) {
	router, _ := newTestRouter(t)
	analyzeSampleUploads(t, router)

	recorder := performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"sideways"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestUndoWithoutDecisionsConflicts(t *testing.T) {
	router, _ := newTestRouter(t)
	analyzeSampleUploads(t, router)

	recorder := performJSONRequest(t, router, http.MethodPost, "/api/session/undo", "")
	if recorder.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusConflict)
	}
}

func TestResetClearsSessionButKeepsDoneMarkers(t *testing.T) {
	router, gateway := newTestRouter(t)
	analyzeSampleUploads(t, router)

	recorder := performJSONRequest(t, router, http.MethodPost, "/api/done", `{"username":"nike"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("mark done status = %d", recorder.Code)
	}

	recorder = performJSONRequest(t, router, http.MethodPost, "/api/session/reset", "")
	state := decodeState(t, recorder)
	if state.Step != "upload" {
		t.Fatalf("step after reset = %q, want upload", state.Step)
	}

	if _, found, _ := gateway.Get(storage.SessionKey); found {
		t.Fatal("reset left the session envelope in the gateway")
	}
	if _, found, _ := gateway.Get(storage.DoneKey); !found {
		t.Fatal("reset removed the done-marker set")
	}
}

func TestDoneMarkerEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := performJSONRequest(t, router, http.MethodPost, "/api/done", `{"username":"nike"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("mark status = %d", recorder.Code)
	}
	recorder = performJSONRequest(t, router, http.MethodPost, "/api/done", `{"username":""}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("blank mark status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}

	recorder = performRequest(router, httptest.NewRequest(http.MethodGet, "/api/done", nil))
	if !strings.Contains(recorder.Body.String(), "nike") {
		t.Fatalf("done list lacks nike: %s", recorder.Body.String())
	}

	recorder = performRequest(router, httptest.NewRequest(http.MethodDelete, "/api/done/nike", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("unmark status = %d", recorder.Code)
	}
	recorder = performRequest(router, httptest.NewRequest(http.MethodGet, "/api/done", nil))
	if strings.Contains(recorder.Body.String(), "nike") {
		t.Fatalf("done list still holds nike: %s", recorder.Body.String())
	}
}

func TestExportCSVEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	analyzeSampleUploads(t, router)
	performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"unfollow"}`)
	performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"keep"}`)
	performJSONRequest(t, router, http.MethodPost, "/api/done", `{"username":"adidas"}`)

	recorder := performRequest(router, httptest.NewRequest(http.MethodGet, "/api/export/csv", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("export status = %d", recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.HasPrefix(body, "username,action,status,timestamp\n") {
		t.Fatalf("export lacks header row: %s", body)
	}
	if !strings.Contains(body, "adidas,unfollow,done,") {
		t.Fatalf("export lacks done unfollow row: %s", body)
	}
	if !strings.Contains(body, "nike,keep,n/a,") {
		t.Fatalf("export lacks keep row: %s", body)
	}
	if disposition := recorder.Header().Get("Content-Disposition"); !strings.Contains(disposition, "follow-decisions-2026-04-05.csv") {
		t.Fatalf("unexpected content disposition: %q", disposition)
	}
}

func TestExportJSONEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	analyzeSampleUploads(t, router)
	performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"unfollow"}`)

	recorder := performRequest(router, httptest.NewRequest(http.MethodGet, "/api/export/json", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("export status = %d", recorder.Code)
	}

	var summary struct {
		ExportedAt string   `json:"exportedAt"`
		Unfollow   []string `json:"unfollow"`
		Stats      struct {
			TotalUnfollow int `json:"totalUnfollow"`
			TotalKeep     int `json:"totalKeep"`
		} `json:"stats"`
	}
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), &summary); decodeErr != nil {
		t.Fatalf("decode export summary: %v", decodeErr)
	}
	if summary.ExportedAt != "2026-04-05T10:00:00Z" {
		t.Fatalf("ExportedAt = %q", summary.ExportedAt)
	}
	if len(summary.Unfollow) != 1 || summary.Unfollow[0] != "adidas" {
		t.Fatalf("Unfollow = %v", summary.Unfollow)
	}
	if summary.Stats.TotalUnfollow != 1 || summary.Stats.TotalKeep != 0 {
		t.Fatalf("Stats = %+v", summary.Stats)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	recorder := performRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("health status = %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "ok") {
		t.Fatalf("health body = %s", recorder.Body.String())
	}
}

func TestSessionStateSurvivesRouterRebuild(t *testing.T) {
	router, gateway := newTestRouter(t)
	analyzeSampleUploads(t, router)
	performJSONRequest(t, router, http.MethodPost, "/api/session/decisions", `{"direction":"unfollow"}`)

	resumedManager := session.NewManager(session.ManagerConfig{
		Store: storage.NewEnvelopeStore(gateway, storage.SessionKey, storage.DefaultTimeToLive),
	})
	if !resumedManager.Restore() {
		t.Fatal("no session envelope to restore from the shared gateway")
	}
	rebuiltRouter, routerErr := server.NewRouter(server.RouterConfig{
		Manager:   resumedManager,
		DoneStore: storage.NewDoneStore(gateway, nil),
	})
	if routerErr != nil {
		t.Fatalf("NewRouter returned error: %v", routerErr)
	}

	recorder := performRequest(rebuiltRouter, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	state := decodeState(t, recorder)
	if state.Step != "swipe" || state.Stats.Processed != 1 || state.CurrentIndex != 1 {
		t.Fatalf("restored state = %+v", state)
	}
}
