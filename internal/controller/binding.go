package controller

import (
	"fmt"
	"log"
	"math"

	"evcam/internal/camera"
)

// SliderControl は露出スライダーウィジェットを表す
// ホスティング面（Webページ等）が実装する
type SliderControl interface {
	// Configure はスライダーの範囲・ステップ・現在値を設定する
	Configure(lower, upper int, stepEv float64, value int)

	// OnChange は値変更リスナーを登録する（nilで解除）
	OnChange(fn func(value float64))

	// LabelFormatter は表示ラベルのフォーマッターを登録する（nilで解除）
	LabelFormatter(fn func(value float64) string)
}

// exposureBinding はスライダーとアクティブセッションの露出コントロールの結合
// バインドごとに作り直され、古い結合は破棄される（リスナーは特定のセッションを
// 閉じ込めているため再利用できない）
type exposureBinding struct {
	sessionID string
	slider    SliderControl
}

// newExposureBinding はセッションの露出状態からスライダーを構成し、
// 変更リスナーを取り付けた新しい結合を作成する
func newExposureBinding(session camera.Session, slider SliderControl) *exposureBinding {
	state := session.Exposure()

	slider.Configure(state.Lower, state.Upper, state.StepEv, state.CurrentIndex)

	slider.LabelFormatter(func(value float64) string {
		return fmt.Sprintf("%+.1f EV", value*state.StepEv)
	})

	// リスナーはバインド時点のセッションを値として閉じ込める
	slider.OnChange(func(value float64) {
		index := int(math.Round(value))
		if err := session.SetExposureIndex(index); err != nil {
			log.Printf("露出補正の転送に失敗: %v", err)
		}
	})

	return &exposureBinding{
		sessionID: session.ID(),
		slider:    slider,
	}
}

// detach はリスナーとフォーマッターを解除する
func (b *exposureBinding) detach() {
	b.slider.OnChange(nil)
	b.slider.LabelFormatter(nil)
}
