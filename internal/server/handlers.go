package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"evcam/internal/camera"
	"evcam/internal/config"
	"evcam/internal/controller"
)

// Handler はHTTPエンドポイントの実装
type Handler struct {
	config     *config.Config
	controller *controller.Controller
	slider     *WebSlider
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	State       string            `json:"state"`                  // コントローラーの状態
	Facing      camera.LensFacing `json:"facing"`                 // 現在のレンズ向き
	SessionID   string            `json:"session_id,omitempty"`   // 現在のセッションID
	LastCapture *CaptureInfo      `json:"last_capture,omitempty"` // 直近の撮影結果
	Timestamp   time.Time         `json:"timestamp"`
}

// CaptureInfo は撮影結果のレスポンス表現
type CaptureInfo struct {
	Path      string `json:"path,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// ExposureResponse は露出状態のレスポンス
type ExposureResponse struct {
	Exposure camera.ExposureState `json:"exposure"`
	Slider   SliderSnapshot       `json:"slider"`
}

// ExposureRequest はスライダー操作のリクエスト
// 値0が有効なため、必須チェックはポインタで行う
type ExposureRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	response := StatusResponse{
		State:     h.controller.State(),
		Facing:    h.controller.Facing(),
		Timestamp: time.Now(),
	}

	if id, ok := h.controller.SessionID(); ok {
		response.SessionID = id
	}

	if result, ok := h.controller.LastCaptureResult(); ok {
		info := &CaptureInfo{
			Path:      result.Path,
			ElapsedMs: result.Elapsed.Milliseconds(),
		}
		if result.Err != nil {
			info.Error = result.Err.Error()
		}
		response.LastCapture = info
	}

	c.JSON(http.StatusOK, response)
}

// GetExposure は露出状態取得エンドポイントの実装
func (h *Handler) GetExposure(c *gin.Context) {
	exposure, ok := h.controller.Exposure()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:     "session_not_bound",
			Message:   "カメラセッションがバインドされていません",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, ExposureResponse{
		Exposure: exposure,
		Slider:   h.slider.Snapshot(),
	})
}

// PutExposure はスライダー操作エンドポイントの実装
// 値はコントローラーが取り付けたリスナー経由でセッションへ転送される
func (h *Handler) PutExposure(c *gin.Context) {
	var req ExposureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid_request",
			Message:   "リクエストの形式が不正です",
			Timestamp: time.Now(),
		})
		return
	}

	if err := h.slider.Push(*req.Value); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:     "session_not_bound",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	exposure, _ := h.controller.Exposure()
	c.JSON(http.StatusOK, ExposureResponse{
		Exposure: exposure,
		Slider:   h.slider.Snapshot(),
	})
}

// SwitchCamera はカメラ切り替えエンドポイントの実装
func (h *Handler) SwitchCamera(c *gin.Context) {
	if err := h.controller.SwitchCamera(c.Request.Context()); err != nil {
		status := http.StatusConflict
		code := "switch_not_allowed"
		if errors.Is(err, controller.ErrBindFailure) {
			status = http.StatusServiceUnavailable
			code = "bind_failure"
		}
		c.JSON(status, ErrorResponse{
			Error:     code,
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	h.GetStatus(c)
}

// CapturePhoto は静止画撮影エンドポイントの実装
// 撮影は非同期に実行されるため202を返す
func (h *Handler) CapturePhoto(c *gin.Context) {
	if err := h.controller.CapturePhoto(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:     "capture_not_allowed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "capturing"})
}

// GetStream はMJPEGストリーミングエンドポイントの実装
func (h *Handler) GetStream(c *gin.Context) {
	frames, ok := h.controller.PreviewFrames()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:     "session_not_bound",
			Message:   "カメラセッションがバインドされていません",
			Timestamp: time.Now(),
		})
		return
	}

	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	// ストリーミングループ
	for {
		select {
		case <-clientGone:
			// クライアントが切断された
			return

		case frame, ok := <-frames:
			if !ok {
				// 再バインドで古いチャンネルがクローズされた
				// クライアントは再接続して新しいセッションのストリームを取得する
				return
			}

			if _, err := writer.Write([]byte("--frame\r\n")); err != nil {
				return
			}
			if _, err := writer.Write([]byte("Content-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}
			if _, err := writer.Write(frame); err != nil {
				return
			}
			if _, err := writer.Write([]byte("\r\n")); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}

// Index は露出制御ページを配信する
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

// indexHTML は露出スライダーとプレビューを表示するページ
const indexHTML = `<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <title>evcam - 露出補正デモ</title>
    <style>
        body { font-family: sans-serif; max-width: 720px; margin: 1em auto; }
        #preview { width: 100%; background: #000; }
        .controls { display: flex; gap: 1em; align-items: center; margin-top: 1em; }
        #ev-slider { flex: 1; }
    </style>
</head>
<body>
    <h1>evcam 露出補正デモ</h1>
    <img id="preview" src="/api/stream" alt="プレビュー">
    <div class="controls">
        <label for="ev-slider">EV</label>
        <input type="range" id="ev-slider">
        <span id="ev-label"></span>
        <button id="switch">カメラ切り替え</button>
        <button id="capture">撮影</button>
    </div>
    <script>
        const slider = document.getElementById('ev-slider');
        const label = document.getElementById('ev-label');

        async function sync() {
            const res = await fetch('/api/exposure');
            if (!res.ok) return;
            const data = await res.json();
            slider.min = data.slider.lower;
            slider.max = data.slider.upper;
            slider.step = 1;
            slider.value = data.slider.value;
            label.textContent = data.slider.label;
        }

        slider.addEventListener('change', async () => {
            const res = await fetch('/api/exposure', {
                method: 'PUT',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({value: Number(slider.value)})
            });
            if (res.ok) {
                const data = await res.json();
                label.textContent = data.slider.label;
            }
        });

        document.getElementById('switch').addEventListener('click', async () => {
            await fetch('/api/switch', {method: 'POST'});
            document.getElementById('preview').src = '/api/stream?' + Date.now();
            await sync();
        });

        document.getElementById('capture').addEventListener('click', async () => {
            await fetch('/api/capture', {method: 'POST'});
        });

        sync();
    </script>
</body>
</html>
`
