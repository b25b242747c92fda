package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storymap-cli/internal/model"
)

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusNotFound, KindNotFound},
		{http.StatusInternalServerError, KindGeneric},
		{http.StatusBadRequest, KindGeneric},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
		}))
		c := NewClient(srv.URL, "tok")
		_, err := c.GetProject(context.Background(), 1)
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		ae, ok := err.(*APIError)
		if !ok {
			t.Fatalf("status %d: expected *APIError; got %T", tc.status, err)
		}
		if ae.Kind != tc.kind {
			t.Fatalf("status %d: expected kind %v; got %v", tc.status, tc.kind, ae.Kind)
		}
		if ae.Detail != "boom" {
			t.Fatalf("status %d: expected detail passthrough; got %q", tc.status, ae.Detail)
		}
	}
}

func TestGetProjectDecodesTreeAndSendsAuth(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(model.Project{
			ID:   7,
			Name: "Shop",
			Activities: []model.Activity{{
				ID: 1, Title: "Browse",
				Tasks: []model.Task{{ID: 2, Title: "Search", Stories: []model.Story{{ID: 3, Title: "Find by name", Status: model.StatusTodo}}}},
			}},
			Releases: []model.Release{{ID: 9, Title: "MVP"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	p, err := c.GetProject(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetProject error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer auth; got %q", gotAuth)
	}
	if gotPath != "/project/7" {
		t.Fatalf("expected /project/7; got %q", gotPath)
	}
	if p.Name != "Shop" || len(p.Activities) != 1 || p.Activities[0].Tasks[0].Stories[0].ID != 3 {
		t.Fatalf("tree not decoded: %+v", p)
	}
}

func TestMoveStorySendsBucketCoordinates(t *testing.T) {
	var got moveStoryBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/story/3/move" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(model.Story{ID: 3, Position: 1})
	}))
	defer srv.Close()

	rid := int64(9)
	c := NewClient(srv.URL, "tok")
	s, err := c.MoveStory(context.Background(), 3, 2, &rid, 1)
	if err != nil {
		t.Fatalf("MoveStory error: %v", err)
	}
	if got.TaskID != 2 || got.ReleaseID == nil || *got.ReleaseID != 9 || got.Position != 1 {
		t.Fatalf("unexpected body: %+v", got)
	}
	if s.Position != 1 {
		t.Fatalf("response not decoded: %+v", s)
	}
}

func TestLoginPostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "a@b.c" || r.PostForm.Get("password") != "pw" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "t0k", "token_type": "bearer"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	tok, err := c.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if tok != "t0k" {
		t.Fatalf("expected token t0k; got %q", tok)
	}
}
