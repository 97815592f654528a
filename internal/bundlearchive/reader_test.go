package bundlearchive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Kavex/Third3D-uploader/internal/model"
)

func fakePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func buildArchive(t *testing.T, manifest model.Manifest, extra map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test1.3b")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}

	files := map[string][]byte{manifestName: manifestBytes}
	for k, v := range extra {
		files[k] = v
	}
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenValidArchive(t *testing.T) {
	manifest := model.Manifest{
		Name:        "Alice",
		BlueprintID: "avtr_00000000-0000-0000-0000-000000000001",
		AssetBundles: map[model.Platform]model.AssetBundleEntry{
			model.PlatformWindows: {Performance: model.PerformanceGood, UnityVersion: "2022.3.6f1"},
		},
	}
	path := buildArchive(t, manifest, map[string][]byte{
		thumbnailName:  fakePNG(t),
		"windows.vrca": bytes.Repeat([]byte{0x42}, 1024),
	})

	unpacked, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer unpacked.Release()

	if unpacked.Manifest.BlueprintID != manifest.BlueprintID {
		t.Fatalf("blueprint id mismatch")
	}
	payload, ok := unpacked.PlatformPayloads[model.PlatformWindows]
	if !ok {
		t.Fatal("expected windows payload")
	}
	if payload.Compressed {
		t.Fatal("windows.vrca should not be marked compressed")
	}
	if _, err := os.Stat(unpacked.ThumbnailPath); err != nil {
		t.Fatalf("thumbnail not extracted: %v", err)
	}
}

func TestOpenMissingPlatformPayload(t *testing.T) {
	manifest := model.Manifest{
		Name:        "Alice",
		BlueprintID: "avtr_1",
		AssetBundles: map[model.Platform]model.AssetBundleEntry{
			model.PlatformAndroid: {Performance: model.PerformanceMedium, UnityVersion: "2022.3.6f1"},
		},
	}
	path := buildArchive(t, manifest, map[string][]byte{thumbnailName: fakePNG(t)})

	_, err := Open(path)
	if err != ErrMissingPlatformPayload {
		t.Fatalf("expected ErrMissingPlatformPayload, got %v", err)
	}
}

func TestOpenMissingThumbnail(t *testing.T) {
	manifest := model.Manifest{
		Name:        "Alice",
		BlueprintID: "avtr_1",
		AssetBundles: map[model.Platform]model.AssetBundleEntry{
			model.PlatformWindows: {Performance: model.PerformanceGood, UnityVersion: "2022.3.6f1"},
		},
	}
	path := buildArchive(t, manifest, map[string][]byte{"windows.vrca": []byte{1, 2, 3}})

	_, err := Open(path)
	if err != ErrThumbnailMissing {
		t.Fatalf("expected ErrThumbnailMissing, got %v", err)
	}
}

func TestOpenInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.3b")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create(manifestName)
	fw.Write([]byte(`{"name":""}`))
	w.Close()
	f.Close()

	_, err = Open(path)
	var invalid *ManifestInvalidError
	if err == nil {
		t.Fatal("expected an error")
	}
	if !isManifestInvalid(err, &invalid) {
		t.Fatalf("expected ManifestInvalidError, got %v (%T)", err, err)
	}
}

func isManifestInvalid(err error, target **ManifestInvalidError) bool {
	if e, ok := err.(*ManifestInvalidError); ok {
		*target = e
		return true
	}
	return false
}
