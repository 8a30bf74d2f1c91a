package controller

import (
	"testing"

	"evcam/internal/camera"
)

func TestSelectAspectRatio(t *testing.T) {
	cases := []struct {
		name   string
		width  int
		height int
		want   camera.AspectRatio
	}{
		// 1920/1080 = 1.777... は16:9に一致
		{"portrait 1080x1920", 1080, 1920, camera.AspectRatio16x9},
		{"landscape 1920x1080", 1920, 1080, camera.AspectRatio16x9},
		// 1600/1200 = 1.333... は4:3に一致
		{"portrait 1200x1600", 1200, 1600, camera.AspectRatio4x3},
		// 1400/900 = 14/9 は両比率から等距離、4:3を優先する
		{"tie 900x1400", 900, 1400, camera.AspectRatio4x3},
		{"square", 1000, 1000, camera.AspectRatio4x3},
		// 不正な寸法は4:3にフォールバック
		{"zero width", 0, 1080, camera.AspectRatio4x3},
		{"negative height", 1920, -1, camera.AspectRatio4x3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectAspectRatio(tc.width, tc.height)
			if got != tc.want {
				t.Errorf("SelectAspectRatio(%d, %d) = %s, want %s",
					tc.width, tc.height, got, tc.want)
			}
		})
	}
}
