package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func newTestClient(t *testing.T, r chi.Router, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Credentials: staticCredential(token)})
}

func TestClient_Unauthenticated(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeEnvelope(w, http.StatusOK, nil)
	})
	c := newTestClient(t, r, "")

	_, err := c.ListMessages(context.Background(), model.Group())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("ListMessages() = %v, want ErrUnauthenticated", err)
	}
	if err := c.MarkAllNotificationsRead(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("MarkAllNotificationsRead() = %v, want ErrUnauthenticated", err)
	}
	if Retryable(err) {
		t.Error("Retryable(ErrUnauthenticated) = true")
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("backend contacted %d times without a credential", n)
	}
}

func TestClient_Login(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "" {
			t.Error("Login sent an Authorization header")
		}
		var body map[string]string
		json.NewDecoder(req.Body).Decode(&body)
		if body["password"] != "hunter2" {
			writeFailure(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeEnvelope(w, http.StatusOK, LoginResult{Token: "tok", User: model.User{ID: "u1", Name: "Ada", Role: model.RoleManager}})
	})
	c := newTestClient(t, r, "")

	res, err := c.Login(context.Background(), "ada@example.com", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "tok" || res.User.Role != model.RoleManager {
		t.Errorf("Login() = %+v", res)
	}

	_, err = c.Login(context.Background(), "ada@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Errorf("Login(wrong) = %v", err)
	}
	if !IsAuthRejected(err) {
		t.Error("IsAuthRejected() = false for 401")
	}
}

func TestClient_ListMessages(t *testing.T) {
	want := []model.Message{
		{ID: "m1", Sender: model.UserRef{ID: "b", Name: "Bo"}, RecipientID: "me", Content: "hi"},
	}
	r := chi.NewRouter()
	r.Get("/api/chat/messages", func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Authorization"); got != "Bearer tok" {
			writeFailure(w, http.StatusUnauthorized, "bad token "+got)
			return
		}
		if req.URL.Query().Get("recipient_id") == "b" {
			writeEnvelope(w, http.StatusOK, want)
			return
		}
		if req.URL.Query().Get("scope") == "group" {
			writeEnvelope(w, http.StatusOK, []model.Message{})
			return
		}
		writeFailure(w, http.StatusBadRequest, "missing scope")
	})
	c := newTestClient(t, r, "tok")

	got, err := c.ListMessages(context.Background(), model.Direct("b"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	got, err = c.ListMessages(context.Background(), model.Group())
	if err != nil || len(got) != 0 {
		t.Errorf("ListMessages(group) = %v, %v", got, err)
	}
}

func TestClient_SendMessageEchoesClientID(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/chat/messages", func(w http.ResponseWriter, req *http.Request) {
		var in SendRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeEnvelope(w, http.StatusCreated, model.Message{
			ID: "msg-42", ClientID: in.ClientMessageID, Content: in.Content, RecipientID: in.RecipientID,
		})
	})
	c := newTestClient(t, r, "tok")

	m, err := c.SendMessage(context.Background(), SendRequest{Content: "hello", ClientMessageID: "local-1"})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "msg-42" || m.ClientID != "local-1" || m.Content != "hello" {
		t.Errorf("SendMessage() = %+v", m)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
		wantNotFound  bool
	}{
		{"ServerError", http.StatusInternalServerError, `{"success":false,"error":"db down"}`, true, false},
		{"TooManyRequests", http.StatusTooManyRequests, `{"success":false,"error":"slow down"}`, true, false},
		{"NotFound", http.StatusNotFound, `{"success":false,"error":"no such message"}`, false, true},
		{"NotJSON", http.StatusBadGateway, `<html>bad gateway</html>`, true, false},
		{"SuccessFalse", http.StatusOK, `{"success":false,"error":"validation failed"}`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Delete("/api/chat/messages/{id}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			c := newTestClient(t, r, "tok")

			err := c.DeleteMessage(context.Background(), "m1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Fatalf("DeleteMessage() = %v, want APIError %d", err, tt.status)
			}
			if got := Retryable(err); got != tt.wantRetryable {
				t.Errorf("Retryable() = %v, want %v", got, tt.wantRetryable)
			}
			if got := errors.Is(err, ErrNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(ErrNotFound) = %v, want %v", got, tt.wantNotFound)
			}
		})
	}
}

func TestClient_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Credentials: staticCredential("tok")})
	_, err := c.ListNotifications(context.Background())
	if err == nil {
		t.Fatal("ListNotifications() against closed server succeeded")
	}
	if !Retryable(err) {
		t.Errorf("Retryable(%v) = false", err)
	}
}

func TestClient_RemoveReactionQuery(t *testing.T) {
	var gotPath, gotEmoji string
	r := chi.NewRouter()
	r.Delete("/api/chat/messages/{id}/reactions", func(w http.ResponseWriter, req *http.Request) {
		gotPath = chi.URLParam(req, "id")
		gotEmoji = req.URL.Query().Get("emoji")
		writeEnvelope(w, http.StatusOK, nil)
	})
	c := newTestClient(t, r, "tok")

	if err := c.RemoveReaction(context.Background(), "m1", "👍"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "m1" || gotEmoji != "👍" {
		t.Errorf("request = %q %q", gotPath, gotEmoji)
	}
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestClient_UploadAttachment(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Post("/api/chat/upload", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		f, hdr, err := req.FormFile("file")
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "file is required")
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		writeEnvelope(w, http.StatusOK, uploadResponse{
			URL:         "/files/abc.png",
			FileName:    hdr.Filename,
			FileSize:    int64(len(data)),
			ContentType: hdr.Header.Get("Content-Type"),
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL, Credentials: staticCredential("tok"), MaxUploadSize: 64})

	att, err := c.UploadAttachment(context.Background(), Upload{FileName: "shot.png", Body: bytes.NewReader(pngHeader)})
	if err != nil {
		t.Fatal(err)
	}
	want := model.Attachment{URL: "/files/abc.png", FileName: "shot.png", Size: int64(len(pngHeader)), MimeType: "image/png"}
	if diff := cmp.Diff(want, att); diff != "" {
		t.Errorf("attachment mismatch (-want +got):\n%s", diff)
	}

	_, err = c.UploadAttachment(context.Background(), Upload{FileName: "run.sh", Body: strings.NewReader("#!/bin/sh")})
	if !errors.Is(err, ErrBlockedType) {
		t.Errorf("UploadAttachment(run.sh) = %v, want ErrBlockedType", err)
	}
	_, err = c.UploadAttachment(context.Background(), Upload{FileName: "big.txt", Body: strings.NewReader(strings.Repeat("x", 65))})
	if !errors.Is(err, ErrUploadTooLarge) {
		t.Errorf("UploadAttachment(big.txt) = %v, want ErrUploadTooLarge", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("upload endpoint hit %d times, want 1", n)
	}
}
