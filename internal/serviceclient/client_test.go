package serviceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, ContactEmail: "test@example.invalid", AppVersion: "0.0.0-test"}), srv
}

func TestGetUserInvalidCredentials(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	outcome, _, err := client.GetUser(context.Background(), "alice", "wrong", Cookies{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != AuthOutcomeInvalidCredentials {
		t.Fatalf("expected AuthOutcomeInvalidCredentials, got %v", outcome.Kind)
	}
}

func TestGetUserTwoFactorRequired(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", `auth=authcookie_abc; Path=/`)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"requiresTwoFactorAuth": []string{"emailOtp"}})
	})

	outcome, cookies, err := client.GetUser(context.Background(), "alice", "pw", Cookies{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != AuthOutcomeTwoFactorRequired {
		t.Fatalf("expected AuthOutcomeTwoFactorRequired, got %v", outcome.Kind)
	}
	if cookies.Auth != "authcookie_abc" {
		t.Fatalf("expected auth cookie captured, got %q", cookies.Auth)
	}
}

func TestCreateAvatarBlueprintTaken(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CreateAvatar(context.Background(), Cookies{}, CreateAvatarRequest{ID: "avtr_1"})
	if _, ok := err.(*BlueprintIDTakenError); !ok {
		t.Fatalf("expected *BlueprintIDTakenError, got %v (%T)", err, err)
	}
}

func TestGetAvatarNotFound(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetAvatar(context.Background(), Cookies{}, "avtr_1")
	var notFound *AvatarNotFoundError
	if e, ok := err.(*AvatarNotFoundError); !ok {
		t.Fatalf("expected *AvatarNotFoundError, got %v (%T)", err, err)
	} else {
		notFound = e
	}
	if notFound.ID != "avtr_1" {
		t.Fatalf("unexpected id %q", notFound.ID)
	}
}

func TestStartFileUploadPartNumber(t *testing.T) {
	var gotQuery string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]string{"url": "https://upload.example/part"})
	})

	url, err := client.StartFileUpload(context.Background(), Cookies{}, "file1", "v1", "file", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://upload.example/part" {
		t.Fatalf("unexpected url %q", url)
	}
	if gotQuery != "partNumber=2" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestParseFileURL(t *testing.T) {
	cases := map[string]string{
		"https://api.vrchat.cloud/api/1/file/file_123/2/file": "file_123",
		"https://api.vrchat.cloud/api/1/file/file_abc":         "file_abc",
	}
	for url, want := range cases {
		got, err := ParseFileURL(url)
		if err != nil {
			t.Fatalf("ParseFileURL(%q): %v", url, err)
		}
		if got != want {
			t.Fatalf("ParseFileURL(%q) = %q, want %q", url, got, want)
		}
	}
}
