package controller

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"evcam/internal/camera"
)

func TestGeneratePhotoFilename(t *testing.T) {
	ts := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	got := generatePhotoFilename(ts)
	if got != "photo_20260830_140509.jpg" {
		t.Errorf("Expected photo_20260830_140509.jpg, got %s", got)
	}
}

func TestCaptureWorkerProcess(t *testing.T) {
	outputDir := t.TempDir()
	session := camera.NewMockSession(camera.LensFacingBack, camera.ExposureState{})

	worker := newCaptureWorker(func(CaptureResult) {})
	result := worker.process(captureJob{session: session, outputDir: outputDir})
	if result.Err != nil {
		t.Fatalf("Expected capture to succeed, got %v", result.Err)
	}

	if !strings.HasPrefix(filepath.Base(result.Path), "photo_") {
		t.Errorf("Expected photo_ filename prefix, got %s", result.Path)
	}

	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("Failed to read saved photo: %v", err)
	}
	if string(data) != "mock-jpeg" {
		t.Errorf("Expected saved frame data, got %q", data)
	}
}

func TestCaptureWorkerProcessFailure(t *testing.T) {
	session := camera.NewMockSession(camera.LensFacingBack, camera.ExposureState{})
	session.SetShouldFailCapture(true)

	worker := newCaptureWorker(func(CaptureResult) {})
	result := worker.process(captureJob{session: session, outputDir: t.TempDir()})
	if result.Err == nil {
		t.Fatal("Expected capture failure")
	}
	if result.Path != "" {
		t.Errorf("Expected no saved path on failure, got %s", result.Path)
	}
}

func TestCaptureWorkerQueueFull(t *testing.T) {
	session := camera.NewMockSession(camera.LensFacingBack, camera.ExposureState{})
	worker := newCaptureWorker(func(CaptureResult) {})

	// ワーカー未起動のままキュー容量まで詰める
	job := captureJob{session: session, outputDir: t.TempDir()}
	for i := 0; i < cap(worker.jobs); i++ {
		if err := worker.enqueue(job); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i+1, err)
		}
	}

	if err := worker.enqueue(job); err == nil {
		t.Error("Expected error when queue is full")
	}
}

func TestCaptureWorkerEnqueueAfterStop(t *testing.T) {
	session := camera.NewMockSession(camera.LensFacingBack, camera.ExposureState{})
	worker := newCaptureWorker(func(CaptureResult) {})
	worker.start()
	worker.stop()

	err := worker.enqueue(captureJob{session: session, outputDir: t.TempDir()})
	if err == nil {
		t.Error("Expected error after worker stop")
	}
}
