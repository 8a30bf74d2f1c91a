package camera

import (
	"context"
)

// LensFacing はアクティブな物理カメラの向きを表す
type LensFacing string

const (
	// LensFacingBack は背面カメラを表す
	LensFacingBack LensFacing = "back"
	// LensFacingFront は前面カメラを表す
	LensFacingFront LensFacing = "front"
)

// Toggle は反対側のレンズ向きを返す
func (f LensFacing) Toggle() LensFacing {
	if f == LensFacingBack {
		return LensFacingFront
	}
	return LensFacingBack
}

// UseCase はプロバイダーに要求するカメラの動作モードを表す
type UseCase string

const (
	// UseCasePreview はライブプレビュー用ユースケースを表す
	UseCasePreview UseCase = "preview"
	// UseCaseStillCapture は静止画撮影用ユースケースを表す
	UseCaseStillCapture UseCase = "still_capture"
)

// AspectRatio はユースケースに要求するターゲットアスペクト比を表す
type AspectRatio string

const (
	// AspectRatio4x3 は4:3のアスペクト比を表す
	AspectRatio4x3 AspectRatio = "4:3"
	// AspectRatio16x9 は16:9のアスペクト比を表す
	AspectRatio16x9 AspectRatio = "16:9"
)

// ExposureState はバインド時点の露出補正スナップショット
// CurrentIndex以外のフィールドはセッションの生存期間中変化しない
type ExposureState struct {
	CurrentIndex int     // 現在の露出補正インデックス
	Lower        int     // 有効なインデックスの下限
	Upper        int     // 有効なインデックスの上限
	StepEv       float64 // 1インデックスあたりのEV値
}

// Session はバインド成功後に得られる不透明なカメラセッション
// 同時に生存できるセッションは最大1つで、新しいバインドが古いセッションを置き換える
type Session interface {
	// ID はセッションの一意識別子を返す
	ID() string

	// Facing はこのセッションのレンズ向きを返す
	Facing() LensFacing

	// Exposure は現在の露出状態スナップショットを返す
	Exposure() ExposureState

	// SetExposureIndex は露出補正インデックスを設定する
	SetExposureIndex(index int) error

	// Frames はプレビューフレーム（JPEG）のチャンネルを返す
	Frames() <-chan []byte

	// Capture は静止画を1枚撮影してJPEGバイト列を返す
	Capture(ctx context.Context) ([]byte, error)

	// Close はセッションを解放する
	Close() error
}

// Provider はカメラ能力プロバイダーを表す
// ユースケースのバインドとアンバインドを担い、同時に1セッションのみを保証する
type Provider interface {
	// HasCamera は指定されたレンズ向きのカメラが利用可能かチェックする
	HasCamera(ctx context.Context, facing LensFacing) bool

	// UnbindAll は既存の全ユースケースを解放する
	UnbindAll() error

	// Bind は指定されたレンズ向き・アスペクト比でユースケースをバインドし、
	// セッションを返す
	Bind(ctx context.Context, facing LensFacing, ratio AspectRatio, useCases []UseCase) (Session, error)
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Device string     // デバイスパス
	Name   string     // デバイス名
	Facing LensFacing // 推定されるレンズ向き
}
