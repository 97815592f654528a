package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Kavex/Third3D-uploader/internal/bundlearchive"
	"github.com/Kavex/Third3D-uploader/internal/model"
	"github.com/Kavex/Third3D-uploader/internal/serviceclient"
	"github.com/Kavex/Third3D-uploader/internal/upload"
)

// fakeService is a minimal in-memory stand-in for the Service's REST
// surface, just enough to drive one publication end-to-end.
type fakeService struct {
	mu        sync.Mutex
	files     map[string]*model.File
	nextFile  int
	avatar    *model.Avatar
	presigned string
}

func newFakeService(presignedBaseURL string) *fakeService {
	return &fakeService{
		files:     make(map[string]*model.File),
		presigned: presignedBaseURL,
	}
}

func (s *fakeService) mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /avatars/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.avatar == nil || s.avatar.ID != r.PathValue("id") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(s.avatar)
	})

	mux.HandleFunc("POST /avatars", func(w http.ResponseWriter, r *http.Request) {
		var req serviceclient.CreateAvatarRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.avatar = &model.Avatar{ID: req.ID, Name: req.Name, ImageURL: req.ImageURL, ReleaseStatus: req.ReleaseStatus}
		avatar := *s.avatar
		s.mu.Unlock()
		json.NewEncoder(w).Encode(avatar)
	})

	mux.HandleFunc("PUT /avatars/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req serviceclient.UpdateAvatarRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		if req.Name != "" {
			s.avatar.Name = req.Name
		}
		if req.ImageURL != "" {
			s.avatar.ImageURL = req.ImageURL
		}
		if req.AssetURL != "" {
			s.avatar.UnityPackages = append(s.avatar.UnityPackages, model.UnityPackage{
				Platform: req.Platform, Variant: "standard", AssetURL: req.AssetURL,
				UnityVersion: req.UnityVersion, AssetVersion: req.AssetVersion,
			})
		}
		avatar := *s.avatar
		s.mu.Unlock()
		json.NewEncoder(w).Encode(avatar)
	})

	mux.HandleFunc("POST /file", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.nextFile++
		id := fmt.Sprintf("file-%d", s.nextFile)
		s.files[id] = &model.File{ID: id}
		s.mu.Unlock()
		json.NewEncoder(w).Encode(s.files[id])
	})

	mux.HandleFunc("POST /file/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		s.mu.Lock()
		f := s.files[id]
		f.Versions = append(f.Versions, model.FileVersion{
			ID:       fmt.Sprintf("%s-v%d", id, len(f.Versions)+1),
			Status:   model.VersionStatusWaiting,
			Category: model.CategorySimple,
		})
		cp := *f
		s.mu.Unlock()
		json.NewEncoder(w).Encode(cp)
	})

	mux.HandleFunc("GET /file/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f := s.files[r.PathValue("id")]
		cp := *f
		s.mu.Unlock()
		json.NewEncoder(w).Encode(cp)
	})

	mux.HandleFunc("PUT /file/{id}/{version}/{sub}/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"url": fmt.Sprintf("%s/put/%s/%s", s.presigned, r.PathValue("id"), r.PathValue("sub")),
		})
	})

	mux.HandleFunc("PUT /file/{id}/{version}/{sub}/finish", func(w http.ResponseWriter, r *http.Request) {
		id, version, sub := r.PathValue("id"), r.PathValue("version"), r.PathValue("sub")
		s.mu.Lock()
		f := s.files[id]
		for i := range f.Versions {
			if f.Versions[i].ID == version {
				if sub == string(model.SubresourceFile) {
					f.Versions[i].Status = model.VersionStatusComplete
				}
			}
		}
		cp := *f
		s.mu.Unlock()
		json.NewEncoder(w).Encode(cp)
	})

	mux.HandleFunc("PUT /put/{id}/{sub}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPublishNewAvatarSinglePlatform(t *testing.T) {
	var srv *httptest.Server
	fake := newFakeService("")
	srv = httptest.NewServer(fake.mux())
	defer srv.Close()
	fake.presigned = srv.URL

	client := serviceclient.New(serviceclient.Config{BaseURL: srv.URL, ContactEmail: "dev@example.com", AppVersion: "1.0"})
	driver := upload.NewDriver(nil)
	o := New(Config{Client: client, Driver: driver, UserAgent: "test-agent", PartConcurrency: 2})

	dir := t.TempDir()
	thumbnailPath := filepath.Join(dir, "thumbnail.png")
	writeFile(t, thumbnailPath, []byte("png-bytes"))
	bundlePath := filepath.Join(dir, "windows.vrca")
	writeFile(t, bundlePath, []byte("bundle-bytes"))

	unpacked := &bundlearchive.Unpacked{
		UnpackDir:     dir,
		ThumbnailPath: thumbnailPath,
		Manifest: model.Manifest{
			Name:        "My Avatar",
			BlueprintID: "avtr_test",
			AssetBundles: map[model.Platform]model.AssetBundleEntry{
				model.PlatformWindows: {Performance: model.PerformanceGood, UnityVersion: "2022.3.6f1"},
			},
		},
		PlatformPayloads: map[model.Platform]bundlearchive.PlatformPayload{
			model.PlatformWindows: {Platform: model.PlatformWindows, Path: bundlePath, Compressed: false},
		},
	}

	sink := make(chan Event, 32)
	var events []Event
	done := make(chan struct{})
	go func() {
		for ev := range sink {
			events = append(events, ev)
		}
		close(done)
	}()

	err := o.Publish(context.Background(), unpacked, serviceclient.Cookies{Auth: "cookie"}, sink)
	close(sink)
	<-done

	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(events) == 0 || events[0].Kind != EventInit {
		t.Fatalf("expected first event to be EventInit, got %+v", events)
	}
	last := events[len(events)-1]
	if last.Kind != EventCompleted {
		t.Fatalf("expected last event to be EventCompleted, got %+v", last)
	}

	var sawBundle bool
	for _, ev := range events {
		if ev.Kind == EventBundle {
			sawBundle = true
			if ev.Platform != "windows" {
				t.Fatalf("unexpected platform in bundle event: %q", ev.Platform)
			}
		}
	}
	if !sawBundle {
		t.Fatal("expected at least one EventBundle")
	}

	if fake.avatar == nil || fake.avatar.ID != "avtr_test" {
		t.Fatalf("avatar not created as expected: %+v", fake.avatar)
	}
	if len(fake.avatar.UnityPackages) != 1 {
		t.Fatalf("expected one unity package, got %d", len(fake.avatar.UnityPackages))
	}
}

func TestCanonicalPathFor(t *testing.T) {
	if got := canonicalPathFor("windows.vrcaz"); got != "windows.vrca" {
		t.Fatalf("canonicalPathFor = %q", got)
	}
}
