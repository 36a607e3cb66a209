package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shadercanvas/internal/gfx"
)

func TestContextKinds(t *testing.T) {
	cases := []struct {
		major, minor int
		want         []string
	}{
		{4, 6, []string{gfx.KindCore41, gfx.KindCore33}},
		{4, 1, []string{gfx.KindCore41, gfx.KindCore33}},
		{4, 0, []string{gfx.KindCore33}},
		{3, 3, []string{gfx.KindCore33}},
		{3, 2, nil},
		{2, 1, nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, contextKinds(tc.major, tc.minor), "%d.%d", tc.major, tc.minor)
	}
}

func TestDensity(t *testing.T) {
	assert.Equal(t, 3.0, density(3, 2, 2))
	assert.Equal(t, 2.0, density(0, 2, 1.5))
	assert.Equal(t, 1.0, density(-1, 0, 0))
}

func TestBackingSize(t *testing.T) {
	cases := []struct {
		name        string
		requested   [2]int
		framebuffer [2]int
		limit       int
		want        [2]int
		offscreen   bool
	}{
		{"matches window", [2]int{1600, 1200}, [2]int{1600, 1200}, 8192, [2]int{1600, 1200}, false},
		{"dpr override above scale", [2]int{2400, 1800}, [2]int{800, 600}, 8192, [2]int{2400, 1800}, true},
		{"dpr override below scale", [2]int{400, 300}, [2]int{1600, 1200}, 8192, [2]int{400, 300}, true},
		{"clamped to driver limit", [2]int{16000, 9000}, [2]int{800, 600}, 8192, [2]int{8192, 8192}, true},
		{"unknown limit", [2]int{16000, 9000}, [2]int{800, 600}, 0, [2]int{16000, 9000}, true},
		{"minimised", [2]int{0, 0}, [2]int{0, 0}, 8192, [2]int{0, 0}, false},
		{"empty request", [2]int{0, 600}, [2]int{800, 600}, 8192, [2]int{800, 600}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, offscreen := backingSize(tc.requested, tc.framebuffer, tc.limit)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.offscreen, offscreen)
		})
	}
}
