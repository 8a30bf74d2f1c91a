package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"evcam/internal/camera"
	"evcam/internal/config"
	"evcam/internal/controller"
	"evcam/internal/permission"
)

// testServer はテスト用のサーバー一式
type testServer struct {
	server     *Server
	controller *controller.Controller
	provider   *camera.MockProvider
	slider     *WebSlider
}

// newTestServer はモック構成のサーバーを作成する
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "localhost", Port: 8080},
		Camera:  config.CameraConfig{FPS: 15},
		Capture: config.CaptureConfig{OutputDir: t.TempDir()},
		Display: config.DisplayConfig{Width: 1080, Height: 1920},
	}

	provider := camera.NewMockProvider(map[camera.LensFacing]bool{
		camera.LensFacingBack:  true,
		camera.LensFacingFront: true,
	}, camera.ExposureState{Lower: -12, Upper: 12, StepEv: 1.0 / 6.0})

	slider := NewWebSlider()
	ctrl := controller.New(controller.Config{
		ProviderFunc: func(_ context.Context) (camera.Provider, error) {
			return provider, nil
		},
		Permissions: permission.NewMockService(map[permission.Permission]bool{
			permission.PermissionCamera: true,
		}),
		Slider:        slider,
		DisplayWidth:  cfg.Display.Width,
		DisplayHeight: cfg.Display.Height,
		OutputDir:     cfg.Capture.OutputDir,
	})

	srv := New(cfg, ctrl, slider)
	srv.setupRoutes()

	return &testServer{
		server:     srv,
		controller: ctrl,
		provider:   provider,
		slider:     slider,
	}
}

// start はコントローラーを開始し、テスト終了時に解放する
func (ts *testServer) start(t *testing.T) {
	t.Helper()

	if err := ts.controller.Start(context.Background()); err != nil {
		t.Fatalf("Controller start failed: %v", err)
	}
	t.Cleanup(func() { _ = ts.controller.Destroy() })
}

// request はテストリクエストを実行する
func (ts *testServer) request(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	ts.server.engine.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Status != "healthy" {
		t.Errorf("Expected status healthy, got %s", response.Status)
	}
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	w := ts.request(http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if response.State != controller.StateBound {
		t.Errorf("Expected state %s, got %s", controller.StateBound, response.State)
	}
	if response.Facing != camera.LensFacingBack {
		t.Errorf("Expected facing %s, got %s", camera.LensFacingBack, response.Facing)
	}
	if response.SessionID == "" {
		t.Error("Expected a session ID")
	}
}

func TestGetExposureBeforeBind(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodGet, "/api/exposure", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Error != "session_not_bound" {
		t.Errorf("Expected error session_not_bound, got %s", response.Error)
	}
}

func TestGetExposure(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	w := ts.request(http.MethodGet, "/api/exposure", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response ExposureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if response.Exposure.Lower != -12 || response.Exposure.Upper != 12 {
		t.Errorf("Expected exposure range [-12, 12], got [%d, %d]",
			response.Exposure.Lower, response.Exposure.Upper)
	}
	if response.Slider.Lower != -12 || response.Slider.Upper != 12 {
		t.Errorf("Expected slider range [-12, 12], got [%d, %d]",
			response.Slider.Lower, response.Slider.Upper)
	}
}

func TestPutExposure(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	w := ts.request(http.MethodPut, "/api/exposure", `{"value": 3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// 値はセッションへ転送される
	session := ts.provider.CurrentSession()
	calls := session.SetCalls()
	if len(calls) != 1 || calls[0] != 3 {
		t.Errorf("Expected forwarded value [3], got %v", calls)
	}

	var response ExposureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Exposure.CurrentIndex != 3 {
		t.Errorf("Expected current index 3, got %d", response.Exposure.CurrentIndex)
	}
	if response.Slider.Label != "+0.5 EV" {
		t.Errorf("Expected label +0.5 EV, got %s", response.Slider.Label)
	}
}

func TestPutExposureZeroValue(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	// 値0はデフォルト露出として有効
	w := ts.request(http.MethodPut, "/api/exposure", `{"value": 0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	calls := ts.provider.CurrentSession().SetCalls()
	if len(calls) != 1 || calls[0] != 0 {
		t.Errorf("Expected forwarded value [0], got %v", calls)
	}
}

func TestPutExposureInvalidRequest(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	tests := []string{
		`{}`,
		`{"value": "abc"}`,
		`not json`,
	}
	for _, body := range tests {
		w := ts.request(http.MethodPut, "/api/exposure", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected status 400, got %d", body, w.Code)
		}
	}
}

func TestPutExposureBeforeBind(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodPut, "/api/exposure", `{"value": 1}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}
}

func TestSwitchCamera(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	w := ts.request(http.MethodPost, "/api/switch", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Facing != camera.LensFacingFront {
		t.Errorf("Expected facing %s, got %s", camera.LensFacingFront, response.Facing)
	}
}

func TestSwitchCameraBindFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	ts.provider.SetShouldFailBind(true)

	w := ts.request(http.MethodPost, "/api/switch", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Error != "bind_failure" {
		t.Errorf("Expected error bind_failure, got %s", response.Error)
	}
}

func TestSwitchCameraBeforeStart(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodPost, "/api/switch", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}
}

func TestCapturePhoto(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t)

	w := ts.request(http.MethodPost, "/api/capture", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCapturePhotoBeforeBind(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodPost, "/api/capture", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}
}

func TestGetStreamBeforeBind(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodGet, "/api/stream", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ev-slider") {
		t.Error("Expected index page to contain the exposure slider")
	}
}
