package server

import (
	"fmt"
	"sync"
)

// WebSlider はWebページ上の露出スライダーを表すSliderControl実装
// 範囲・値の構成はコントローラーが行い、ユーザー操作はPush経由で
// 登録済みリスナーへ中継される
type WebSlider struct {
	mu        sync.RWMutex
	lower     int
	upper     int
	stepEv    float64
	value     float64
	onChange  func(value float64)
	formatter func(value float64) string
}

// SliderSnapshot はスライダーの現在の表示状態
type SliderSnapshot struct {
	Lower  int     `json:"lower"`   // 値の下限
	Upper  int     `json:"upper"`   // 値の上限
	StepEv float64 `json:"step_ev"` // 1インデックスあたりのEV値
	Value  float64 `json:"value"`   // 現在値
	Label  string  `json:"label"`   // 表示ラベル
}

// NewWebSlider は新しいWebSliderを作成する
func NewWebSlider() *WebSlider {
	return &WebSlider{}
}

// Configure はスライダーの範囲・ステップ・現在値を設定する
func (s *WebSlider) Configure(lower, upper int, stepEv float64, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lower = lower
	s.upper = upper
	s.stepEv = stepEv
	s.value = float64(value)
}

// OnChange は値変更リスナーを登録する（nilで解除）
func (s *WebSlider) OnChange(fn func(value float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// LabelFormatter は表示ラベルのフォーマッターを登録する（nilで解除）
func (s *WebSlider) LabelFormatter(fn func(value float64) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formatter = fn
}

// Push はユーザーのスライダー操作を反映し、リスナーへ中継する
func (s *WebSlider) Push(value float64) error {
	s.mu.Lock()
	if s.onChange == nil {
		s.mu.Unlock()
		return fmt.Errorf("スライダーはカメラセッションに結合されていません")
	}
	s.value = value
	fn := s.onChange
	s.mu.Unlock()

	// リスナーは露出設定を行うため、ロックの外で呼び出す
	fn(value)
	return nil
}

// Snapshot は現在の表示状態を返す
func (s *WebSlider) Snapshot() SliderSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	label := ""
	if s.formatter != nil {
		label = s.formatter(s.value)
	}

	return SliderSnapshot{
		Lower:  s.lower,
		Upper:  s.upper,
		StepEv: s.stepEv,
		Value:  s.value,
		Label:  label,
	}
}
