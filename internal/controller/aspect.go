package controller

import (
	"math"

	"evcam/internal/camera"
)

const (
	ratio4x3  = 4.0 / 3.0
	ratio16x9 = 16.0 / 9.0
)

// SelectAspectRatio はディスプレイ寸法からターゲットアスペクト比を選択する
// max(w,h)/min(w,h) が4:3と16:9のどちらに近いかで決定し、等距離の場合は4:3とする
func SelectAspectRatio(width, height int) camera.AspectRatio {
	if width <= 0 || height <= 0 {
		return camera.AspectRatio4x3
	}

	w := float64(width)
	h := float64(height)
	ratio := math.Max(w, h) / math.Min(w, h)

	if math.Abs(ratio-ratio4x3) <= math.Abs(ratio-ratio16x9) {
		return camera.AspectRatio4x3
	}
	return camera.AspectRatio16x9
}
