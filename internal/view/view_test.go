package view

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featnav/internal/geom"
	"featnav/internal/navigator"
)

var (
	_ navigator.Viewport = (*Map)(nil)
	_ navigator.Viewport = (*Scene)(nil)
)

func TestMapPadsExtent(t *testing.T) {
	m := NewMap(0.1, 1)
	_, ok := m.Frame()
	assert.False(t, ok)
	assert.Equal(t, "nothing framed", m.Describe())

	m.ApplyExtent(geom.BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 20})
	frame, ok := m.Frame()
	require.True(t, ok)
	assert.InDelta(t, -1, frame.MinX, 1e-9)
	assert.InDelta(t, -2, frame.MinY, 1e-9)
	assert.InDelta(t, 11, frame.MaxX, 1e-9)
	assert.InDelta(t, 22, frame.MaxY, 1e-9)
	assert.Contains(t, m.Describe(), "center (5, 10)")
}

func TestMapPointUsesMinSize(t *testing.T) {
	m := NewMap(0.5, 4)
	m.ApplyExtent(geom.BoundingBox{MinX: 3, MinY: 3, MaxX: 3, MaxY: 3})
	frame, _ := m.Frame()
	assert.Equal(t, geom.BoundingBox{MinX: 1, MinY: 1, MaxX: 5, MaxY: 5}, frame)
}

func TestMapDefaults(t *testing.T) {
	m := NewMap(-1, 0)
	m.ApplyExtent(geom.BoundingBox{MinX: 2, MinY: 2, MaxX: 4, MaxY: 4})
	frame, _ := m.Frame()
	assert.Equal(t, geom.BoundingBox{MinX: 2, MinY: 2, MaxX: 4, MaxY: 4}, frame, "negative padding is zero")

	m.ApplyExtent(geom.BoundingBox{})
	frame, _ = m.Frame()
	assert.Equal(t, DefaultMinSize, frame.Width())
}

func TestCameraFor(t *testing.T) {
	box := geom.BoundingBox{MinX: 0, MinY: 0, MaxX: 6, MaxY: 8}
	cam := CameraFor(box, 90)
	assert.Equal(t, 3.0, cam.X)
	assert.Equal(t, 4.0, cam.Y)
	// diagonal 10, tan(45deg) = 1
	assert.InDelta(t, 5, cam.Altitude, 1e-9)

	narrow := CameraFor(box, 30)
	assert.Greater(t, narrow.Altitude, cam.Altitude, "narrower field of view backs the camera off")
	assert.InDelta(t, 5/math.Tan(math.Pi/12), narrow.Altitude, 1e-9)
}

func TestSceneApplyExtent(t *testing.T) {
	s := NewScene(90, 0)
	_, ok := s.Camera()
	assert.False(t, ok)
	assert.Equal(t, "camera not placed", s.Describe())

	s.ApplyExtent(geom.BoundingBox{MinX: 0, MinY: 0, MaxX: 6, MaxY: 8})
	cam, ok := s.Camera()
	require.True(t, ok)
	assert.InDelta(t, 5, cam.Altitude, 1e-9)
	assert.Equal(t, "camera (3, 4) altitude 5.000 fov 90", s.Describe())
}

func TestSceneInvalidFOV(t *testing.T) {
	for _, fov := range []float64{0, -5, 180, 270} {
		s := NewScene(fov, 0)
		s.ApplyExtent(geom.BoundingBox{MinX: 1, MinY: 1, MaxX: 1, MaxY: 1})
		cam, _ := s.Camera()
		assert.Equal(t, DefaultFOV, cam.FOV)
		assert.Greater(t, cam.Altitude, 0.0, "a point still gets a positive altitude")
	}
}
