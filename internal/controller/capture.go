package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"evcam/internal/camera"
)

// captureProcessTimeout は1回の撮影処理全体のタイムアウト
const captureProcessTimeout = 10 * time.Second

// CaptureResult は撮影操作の結果を表す
type CaptureResult struct {
	Path    string        // 保存先のファイルパス
	Elapsed time.Duration // 撮影にかかった時間
	Err     error         // 失敗時のエラー
}

// captureJob は撮影ワーカーへの1件の依頼
type captureJob struct {
	session   camera.Session
	outputDir string
}

// captureWorker はブロッキングする撮影I/O専用のバックグラウンドワーカー
// フォアグラウンドの制御フローを塞がないよう、撮影と保存はこのワーカーで実行する
type captureWorker struct {
	jobs     chan captureJob
	onResult func(CaptureResult)

	// 制御用
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// newCaptureWorker は新しいcaptureWorkerを作成する
func newCaptureWorker(onResult func(CaptureResult)) *captureWorker {
	return &captureWorker{
		jobs:     make(chan captureJob, 4),
		onResult: onResult,
		stopCh:   make(chan struct{}),
	}
}

// start はワーカーゴルーチンを開始する
func (w *captureWorker) start() {
	w.wg.Add(1)
	go w.run()
}

// stop はワーカーを停止する
// 新規の依頼は受け付けず、実行中の撮影は完了を待つ
func (w *captureWorker) stop() {
	close(w.stopCh)
	w.wg.Wait()
}

// enqueue は撮影依頼をキューに追加する
func (w *captureWorker) enqueue(job captureJob) error {
	select {
	case <-w.stopCh:
		return fmt.Errorf("撮影ワーカーは停止済みです")
	default:
	}

	select {
	case w.jobs <- job:
		return nil
	default:
		return fmt.Errorf("撮影キューが満杯です")
	}
}

// run は依頼を順番に処理する
func (w *captureWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case job := <-w.jobs:
			w.onResult(w.process(job))
		}
	}
}

// process は1件の撮影と保存を実行する
func (w *captureWorker) process(job captureJob) CaptureResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), captureProcessTimeout)
	defer cancel()

	data, err := job.session.Capture(ctx)
	if err != nil {
		return CaptureResult{
			Elapsed: time.Since(start),
			Err:     fmt.Errorf("撮影に失敗: %w", err),
		}
	}

	if err := os.MkdirAll(job.outputDir, 0755); err != nil {
		return CaptureResult{
			Elapsed: time.Since(start),
			Err:     fmt.Errorf("出力ディレクトリの作成に失敗: %w", err),
		}
	}

	path := filepath.Join(job.outputDir, generatePhotoFilename(start))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return CaptureResult{
			Elapsed: time.Since(start),
			Err:     fmt.Errorf("写真の保存に失敗: %w", err),
		}
	}

	return CaptureResult{
		Path:    path,
		Elapsed: time.Since(start),
	}
}

// generatePhotoFilename は撮影時刻から写真のファイル名を生成する
func generatePhotoFilename(t time.Time) string {
	return fmt.Sprintf("photo_%s.jpg", t.Format("20060102_150405"))
}
