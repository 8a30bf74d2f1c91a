package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/looplab/fsm"

	"evcam/internal/camera"
	"evcam/internal/permission"
)

// コントローラーの状態
const (
	StateUnstarted          = "unstarted"
	StateAwaitingPermission = "awaiting_permission"
	StatePermissionDenied   = "permission_denied"
	StateProviderLoading    = "provider_loading"
	StateBound              = "bound"
	StateRebinding          = "rebinding"
	StateDestroyed          = "destroyed"
)

// 状態遷移イベント
const (
	eventStart      = "start"
	eventDeny       = "deny"
	eventGrant      = "grant"
	eventBound      = "bound"
	eventSwitch     = "switch"
	eventRebound    = "rebound"
	eventBindFailed = "bind_failed"
	eventDestroy    = "destroy"
)

// エラー分類
var (
	// ErrPermissionDenied は必要な権限が拒否されたことを表す（終端）
	ErrPermissionDenied = errors.New("カメラ権限が拒否されました")
	// ErrProviderUnavailable はプロバイダーの取得に失敗したことを表す（致命的）
	ErrProviderUnavailable = errors.New("カメラプロバイダーを利用できません")
	// ErrNoCameraAvailable は背面・前面のどちらのカメラも利用できないことを表す（致命的）
	ErrNoCameraAvailable = errors.New("利用可能なカメラがありません")
	// ErrBindFailure はバインド要求がプロバイダーに拒否されたことを表す（回復可能）
	ErrBindFailure = errors.New("カメラのバインドに失敗しました")
)

// Config はControllerの構成を表す
type Config struct {
	// ProviderFunc はカメラプロバイダーを非同期に取得する
	ProviderFunc func(ctx context.Context) (camera.Provider, error)

	// Permissions は権限リクエストサービス
	Permissions permission.Service

	// Slider は露出スライダーウィジェット
	Slider SliderControl

	// DisplayWidth / DisplayHeight はアスペクト比選択に使うディスプレイ寸法
	DisplayWidth  int
	DisplayHeight int

	// OutputDir は写真の保存先ディレクトリ
	OutputDir string

	// OnNotify は利用者への通知コールバック（nilの場合はログ出力）
	OnNotify func(message string)
}

// Controller はカメラセッションのライフサイクルを駆動する
// 保持する状態（レンズ向き・セッション・結合）は全てこの構造体が所有し、
// 再バインドをまたいで参照を保持する他コンポーネントは存在しない
type Controller struct {
	cfg     Config
	machine *fsm.FSM

	mu       sync.Mutex
	provider camera.Provider
	facing   camera.LensFacing
	session  camera.Session
	binding  *exposureBinding
	worker   *captureWorker

	// 撮影結果はワーカーゴルーチンから書き込まれるため別ロックで守る
	captureMu      sync.Mutex
	lastCapture    CaptureResult
	hasLastCapture bool
}

// New は新しいControllerを作成する
func New(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	c.machine = fsm.NewFSM(
		StateUnstarted,
		fsm.Events{
			{Name: eventStart, Src: []string{StateUnstarted}, Dst: StateAwaitingPermission},
			{Name: eventDeny, Src: []string{StateAwaitingPermission}, Dst: StatePermissionDenied},
			{Name: eventGrant, Src: []string{StateAwaitingPermission}, Dst: StateProviderLoading},
			{Name: eventBound, Src: []string{StateProviderLoading}, Dst: StateBound},
			{Name: eventSwitch, Src: []string{StateBound}, Dst: StateRebinding},
			{Name: eventRebound, Src: []string{StateRebinding}, Dst: StateBound},
			{Name: eventBindFailed, Src: []string{StateRebinding}, Dst: StateBound},
			{Name: eventDestroy, Src: []string{
				StateUnstarted, StateAwaitingPermission, StateProviderLoading,
				StateBound, StateRebinding, StatePermissionDenied,
			}, Dst: StateDestroyed},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				log.Printf("コントローラー状態遷移: %s -> %s", e.Src, e.Dst)
			},
		},
	)

	c.worker = newCaptureWorker(c.handleCaptureResult)
	return c
}

// Start はコントローラーを開始する
// 権限確認 → プロバイダー取得 → レンズ向き決定 → 初回バインドを順に実行する
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.machine.Event(eventStart); err != nil {
		return fmt.Errorf("コントローラーは既に開始されています: %w", err)
	}

	// 権限確認（全て許可されるまでカメラ操作は一切行わない）
	required := []permission.Permission{permission.PermissionCamera}
	results, err := c.cfg.Permissions.Request(ctx, required)
	if err != nil {
		_ = c.machine.Event(eventDeny)
		c.notify("権限の確認に失敗しました")
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	for _, perm := range required {
		if !results[perm] {
			_ = c.machine.Event(eventDeny)
			c.notify(fmt.Sprintf("権限 %s が拒否されました", perm))
			return fmt.Errorf("%w: %s", ErrPermissionDenied, perm)
		}
	}

	if err := c.machine.Event(eventGrant); err != nil {
		return err
	}

	// プロバイダー取得（失敗は致命的、自動リトライしない）
	provider, err := c.cfg.ProviderFunc(ctx)
	if err != nil {
		c.notify("カメラプロバイダーの取得に失敗しました")
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	c.provider = provider

	// レンズ向き決定（背面優先、どちらもなければ致命的）
	switch {
	case provider.HasCamera(ctx, camera.LensFacingBack):
		c.facing = camera.LensFacingBack
	case provider.HasCamera(ctx, camera.LensFacingFront):
		c.facing = camera.LensFacingFront
	default:
		c.notify("利用可能なカメラが見つかりません")
		return ErrNoCameraAvailable
	}

	// 初回バインド（失敗時は部分状態をUIに公開しない）
	if err := c.bindLocked(ctx); err != nil {
		c.notify("カメラのバインドに失敗しました")
		return fmt.Errorf("%w: %v", ErrBindFailure, err)
	}

	if err := c.machine.Event(eventBound); err != nil {
		return err
	}

	c.worker.start()
	return nil
}

// SwitchCamera はレンズ向きを切り替えて再バインドする
// バインド失敗時は以前のセッションを正とし、UI表示も以前の状態へ戻す
func (c *Controller) SwitchCamera(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.machine.Event(eventSwitch); err != nil {
		return fmt.Errorf("カメラ切り替えを実行できる状態ではありません: %w", err)
	}

	prevFacing := c.facing
	c.facing = c.facing.Toggle()

	if err := c.bindLocked(ctx); err != nil {
		// 以前のセッションを正として表示を同期し直す
		c.facing = prevFacing
		if c.session != nil {
			c.rebindSliderLocked()
		}
		_ = c.machine.Event(eventBindFailed)
		c.notify("カメラ切り替えに失敗しました")
		return fmt.Errorf("%w: %v", ErrBindFailure, err)
	}

	return c.machine.Event(eventRebound)
}

// Resume はバックグラウンド復帰時の再同期を行う
// バインド状態は変更せず、スライダーを現在のセッションの露出状態に合わせ直す
// （プラットフォームによってUIコントロールが再生成されている場合への備え）
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}
	c.rebindSliderLocked()
}

// CapturePhoto は静止画撮影を依頼する
// 撮影はバックグラウンドワーカーで非同期に実行され、バインド状態を変更しない
func (c *Controller) CapturePhoto() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Is(StateBound) || c.session == nil {
		return fmt.Errorf("静止画撮影ユースケースがバインドされていません")
	}

	return c.worker.enqueue(captureJob{
		session:   c.session,
		outputDir: c.cfg.OutputDir,
	})
}

// Destroy はコントローラーを終了し、リソースを解放する
func (c *Controller) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Is(StateDestroyed) {
		return nil
	}

	started := !c.machine.Is(StateUnstarted)
	if err := c.machine.Event(eventDestroy); err != nil {
		return err
	}

	// 撮影ワーカーを停止（実行中の撮影は完了を待つ）
	if started && c.worker != nil {
		c.worker.stop()
	}

	if c.binding != nil {
		c.binding.detach()
		c.binding = nil
	}

	if c.provider != nil {
		if err := c.provider.UnbindAll(); err != nil {
			return fmt.Errorf("セッションの解放に失敗: %w", err)
		}
	}

	c.session = nil
	return nil
}

// State は現在の状態を返す
func (c *Controller) State() string {
	return c.machine.Current()
}

// Facing は現在のレンズ向きを返す
func (c *Controller) Facing() camera.LensFacing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// Exposure は現在のセッションの露出状態を返す
func (c *Controller) Exposure() (camera.ExposureState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return camera.ExposureState{}, false
	}
	return c.session.Exposure(), true
}

// PreviewFrames は現在のセッションのプレビューフレームチャンネルを返す
// 再バインド後は古いチャンネルがクローズされるため、呼び出し側は
// 都度このメソッドで取得し直す必要がある
func (c *Controller) PreviewFrames() (<-chan []byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, false
	}
	return c.session.Frames(), true
}

// SessionID は現在のセッションIDを返す
func (c *Controller) SessionID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return "", false
	}
	return c.session.ID(), true
}

// LastCaptureResult は直近の撮影結果を返す
func (c *Controller) LastCaptureResult() (CaptureResult, bool) {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	return c.lastCapture, c.hasLastCapture
}

// bindLocked はバインドのサブシーケンスを実行する（ロック済み前提）
// アンバインド → バインド → セッション捕捉 → スライダー結合の順で行い、
// 失敗時はセッションフィールドを変更しない
func (c *Controller) bindLocked(ctx context.Context) error {
	ratio := SelectAspectRatio(c.cfg.DisplayWidth, c.cfg.DisplayHeight)

	if err := c.provider.UnbindAll(); err != nil {
		return err
	}

	session, err := c.provider.Bind(ctx, c.facing, ratio, []camera.UseCase{
		camera.UseCasePreview,
		camera.UseCaseStillCapture,
	})
	if err != nil {
		return err
	}

	c.session = session
	c.rebindSliderLocked()
	return nil
}

// rebindSliderLocked はスライダー結合を作り直す（ロック済み前提）
// 古い結合はセッションを閉じ込めているため破棄し、再利用しない
func (c *Controller) rebindSliderLocked() {
	if c.binding != nil {
		c.binding.detach()
	}
	c.binding = newExposureBinding(c.session, c.cfg.Slider)
}

// handleCaptureResult は撮影結果を記録して利用者へ通知する
func (c *Controller) handleCaptureResult(result CaptureResult) {
	c.captureMu.Lock()
	c.lastCapture = result
	c.hasLastCapture = true
	c.captureMu.Unlock()

	if result.Err != nil {
		c.notify(fmt.Sprintf("撮影に失敗しました: %v", result.Err))
		return
	}
	c.notify(fmt.Sprintf("写真を保存しました: %s (%.0fms)",
		result.Path, float64(result.Elapsed.Milliseconds())))
}

// notify は利用者への通知を行う
func (c *Controller) notify(message string) {
	if c.cfg.OnNotify != nil {
		c.cfg.OnNotify(message)
		return
	}
	log.Println(message)
}
