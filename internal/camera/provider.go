package camera

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

// exposureBiasCtrlID は露出補正コントロールのID
// 値は0.001EV単位で解釈される
const exposureBiasCtrlID v4l2.CtrlID = 10094867 // Auto Exposure Bias (V4L2_CID_AUTO_EXPOSURE_BIAS)

// captureTimeout は静止画撮影時のフレーム待ちタイムアウト
const captureTimeout = 3 * time.Second

// V4L2Provider はgo4vl経由でV4L2デバイスをバインドするProvider実装
type V4L2Provider struct {
	devices map[LensFacing]string // レンズ向きごとのデバイスパス
	fps     int

	mu      sync.Mutex
	session *v4l2Session
}

// NewV4L2Provider は新しいV4L2Providerを作成する
func NewV4L2Provider(devices map[LensFacing]string, fps int) *V4L2Provider {
	return &V4L2Provider{
		devices: devices,
		fps:     fps,
	}
}

// HasCamera は指定されたレンズ向きのカメラが利用可能かチェックする
func (p *V4L2Provider) HasCamera(_ context.Context, facing LensFacing) bool {
	path, ok := p.devices[facing]
	if !ok {
		return false
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	return true
}

// UnbindAll は既存の全ユースケースを解放する
func (p *V4L2Provider) UnbindAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unbindLocked()
}

// unbindLocked は現在のセッションを解放する（ロック済み前提）
func (p *V4L2Provider) unbindLocked() error {
	if p.session == nil {
		return nil
	}

	err := p.session.Close()
	p.session = nil
	if err != nil {
		return fmt.Errorf("セッションの解放に失敗: %w", err)
	}
	return nil
}

// Bind は指定されたレンズ向き・アスペクト比でユースケースをバインドする
func (p *V4L2Provider) Bind(ctx context.Context, facing LensFacing, ratio AspectRatio, useCases []UseCase) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 最大1セッションの不変条件を守るため、先に既存セッションを解放する
	if err := p.unbindLocked(); err != nil {
		return nil, err
	}

	path, ok := p.devices[facing]
	if !ok {
		return nil, fmt.Errorf("レンズ向き %s に対応するデバイスがありません", facing)
	}

	width, height := resolutionForRatio(ratio)
	dev, err := device.Open(
		path,
		device.WithBufferSize(2),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       width,
			Height:      height,
		}),
		device.WithFPS(uint32(p.fps)),
	)
	if err != nil {
		return nil, fmt.Errorf("デバイス %s のオープンに失敗: %w", path, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if err := dev.Start(runCtx); err != nil {
		cancel()
		_ = dev.Close()
		return nil, fmt.Errorf("デバイス %s のストリーミング開始に失敗: %w", path, err)
	}

	session := &v4l2Session{
		id:       uuid.New().String(),
		facing:   facing,
		dev:      dev,
		cancel:   cancel,
		exposure: readExposureState(dev),
		frames:   make(chan []byte, 8),
	}

	// プレビュー・静止画撮影の両ユースケースが同じフレームポンプを共有する
	_ = useCases
	go session.pump(runCtx)

	p.session = session
	return session, nil
}

// resolutionForRatio はアスペクト比に対応する要求解像度を返す
// 正確な解像度ではなく比率のみを最適化対象とする
func resolutionForRatio(ratio AspectRatio) (uint32, uint32) {
	if ratio == AspectRatio4x3 {
		return 1280, 960
	}
	return 1280, 720
}

// readExposureState は露出補正コントロールからExposureStateを導出する
// コントロールが存在しないデバイスでは補正不可（範囲[0,0]）として扱う
func readExposureState(dev *device.Device) ExposureState {
	ctrl, err := v4l2.GetControl(dev.Fd(), exposureBiasCtrlID)
	if err != nil {
		log.Printf("露出補正コントロールを取得できません（補正なしで継続）: %v", err)
		return ExposureState{}
	}

	return ExposureState{
		CurrentIndex: int(ctrl.Value),
		Lower:        int(ctrl.Minimum),
		Upper:        int(ctrl.Maximum),
		StepEv:       float64(ctrl.Step) / 1000.0, // 0.001EV単位
	}
}

// v4l2Session はV4L2デバイスに対するSession実装
type v4l2Session struct {
	id     string
	facing LensFacing
	dev    *device.Device
	cancel context.CancelFunc

	mu       sync.RWMutex
	exposure ExposureState
	closed   bool

	frames chan []byte
}

// ID はセッションの一意識別子を返す
func (s *v4l2Session) ID() string {
	return s.id
}

// Facing はこのセッションのレンズ向きを返す
func (s *v4l2Session) Facing() LensFacing {
	return s.facing
}

// Exposure は現在の露出状態スナップショットを返す
func (s *v4l2Session) Exposure() ExposureState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exposure
}

// SetExposureIndex は露出補正インデックスを設定する
func (s *v4l2Session) SetExposureIndex(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("セッション %s は解放済みです", s.id)
	}

	if index < s.exposure.Lower || index > s.exposure.Upper {
		return fmt.Errorf("露出インデックス %d が範囲 [%d, %d] 外です",
			index, s.exposure.Lower, s.exposure.Upper)
	}

	if err := s.dev.SetControlValue(exposureBiasCtrlID, int32(index)); err != nil {
		return fmt.Errorf("露出補正の設定に失敗: %w", err)
	}

	s.exposure.CurrentIndex = index
	return nil
}

// Frames はプレビューフレームのチャンネルを返す
func (s *v4l2Session) Frames() <-chan []byte {
	return s.frames
}

// Capture は静止画を1枚撮影してJPEGバイト列を返す
func (s *v4l2Session) Capture(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(captureTimeout)
	defer timer.Stop()

	select {
	case frame, ok := <-s.frames:
		if !ok {
			return nil, fmt.Errorf("セッション %s のストリームがクローズされました", s.id)
		}
		return frame, nil
	case <-timer.C:
		return nil, fmt.Errorf("フレーム取得がタイムアウトしました")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close はセッションを解放する
func (s *v4l2Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.cancel()
	if err := s.dev.Close(); err != nil {
		return fmt.Errorf("デバイスのクローズに失敗: %w", err)
	}
	return nil
}

// pump はデバイス出力を読み取り、コピーしてフレームチャンネルへ転送する
func (s *v4l2Session) pump(ctx context.Context) {
	defer close(s.frames)

	output := s.dev.GetOutput()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-output:
			if !ok {
				return
			}

			// バッファは再利用されるためコピーする
			data := make([]byte, len(frame))
			copy(data, frame)

			select {
			case s.frames <- data:
			default:
				// 消費が追いつかない場合はフレームを破棄する
			}
		}
	}
}

// MockProvider はテスト用のモックProvider実装
type MockProvider struct {
	mu        sync.Mutex
	available map[LensFacing]bool
	exposure  ExposureState
	session   *MockSession

	// テスト制御用
	shouldFailBind bool
	bindCalls      int
	unbindCalls    int
	lastRatio      AspectRatio
	lastUseCases   []UseCase
}

// NewMockProvider は新しいMockProviderを作成する
func NewMockProvider(available map[LensFacing]bool, exposure ExposureState) *MockProvider {
	return &MockProvider{
		available: available,
		exposure:  exposure,
	}
}

// HasCamera はモックカメラが利用可能かチェックする
func (m *MockProvider) HasCamera(_ context.Context, facing LensFacing) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available[facing]
}

// UnbindAll は既存のモックセッションを解放する
func (m *MockProvider) UnbindAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unbindCalls++
	if m.session != nil {
		_ = m.session.Close()
		m.session = nil
	}
	return nil
}

// Bind はモックセッションを作成する
func (m *MockProvider) Bind(_ context.Context, facing LensFacing, ratio AspectRatio, useCases []UseCase) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bindCalls++
	m.lastRatio = ratio
	m.lastUseCases = useCases

	if m.shouldFailBind {
		return nil, fmt.Errorf("モック: バインドに失敗")
	}

	if !m.available[facing] {
		return nil, fmt.Errorf("レンズ向き %s に対応するデバイスがありません", facing)
	}

	// 最大1セッションの不変条件を守る
	if m.session != nil {
		_ = m.session.Close()
	}
	m.session = NewMockSession(facing, m.exposure)
	return m.session, nil
}

// SetShouldFailBind はテスト用にBind失敗を設定する
func (m *MockProvider) SetShouldFailBind(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailBind = shouldFail
}

// BindCalls はBindが呼ばれた回数を返す
func (m *MockProvider) BindCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindCalls
}

// UnbindCalls はUnbindAllが呼ばれた回数を返す
func (m *MockProvider) UnbindCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unbindCalls
}

// LastRatio は最後のBindで要求されたアスペクト比を返す
func (m *MockProvider) LastRatio() AspectRatio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRatio
}

// CurrentSession は現在のモックセッションを返す
func (m *MockProvider) CurrentSession() *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// MockSession はテスト用のモックSession実装
type MockSession struct {
	id     string
	facing LensFacing

	mu       sync.Mutex
	exposure ExposureState
	closed   bool
	setCalls []int

	// テスト制御用
	shouldFailCapture bool

	frames chan []byte
}

// NewMockSession は新しいMockSessionを作成する
func NewMockSession(facing LensFacing, exposure ExposureState) *MockSession {
	return &MockSession{
		id:       uuid.New().String(),
		facing:   facing,
		exposure: exposure,
		frames:   make(chan []byte, 8),
	}
}

// ID はセッションの一意識別子を返す
func (m *MockSession) ID() string {
	return m.id
}

// Facing はこのセッションのレンズ向きを返す
func (m *MockSession) Facing() LensFacing {
	return m.facing
}

// Exposure は現在の露出状態スナップショットを返す
func (m *MockSession) Exposure() ExposureState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exposure
}

// SetExposureIndex は露出補正インデックスを設定する
func (m *MockSession) SetExposureIndex(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("セッション %s は解放済みです", m.id)
	}

	if index < m.exposure.Lower || index > m.exposure.Upper {
		return fmt.Errorf("露出インデックス %d が範囲 [%d, %d] 外です",
			index, m.exposure.Lower, m.exposure.Upper)
	}

	m.setCalls = append(m.setCalls, index)
	m.exposure.CurrentIndex = index
	return nil
}

// Frames はプレビューフレームのチャンネルを返す
func (m *MockSession) Frames() <-chan []byte {
	return m.frames
}

// Capture は静止画撮影をシミュレートする
func (m *MockSession) Capture(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailCapture {
		return nil, fmt.Errorf("モック: 撮影に失敗")
	}

	return []byte("mock-jpeg"), nil
}

// Close はモックセッションを解放する
func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.frames)
	}
	return nil
}

// IsClosed はセッションが解放済みかを返す
func (m *MockSession) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetCalls はSetExposureIndexで転送された値の履歴を返す
func (m *MockSession) SetCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]int, len(m.setCalls))
	copy(calls, m.setCalls)
	return calls
}

// SetShouldFailCapture はテスト用にCapture失敗を設定する
func (m *MockSession) SetShouldFailCapture(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailCapture = shouldFail
}

// PushFrame はテスト用にフレームを供給する
func (m *MockSession) PushFrame(frame []byte) {
	m.frames <- frame
}
