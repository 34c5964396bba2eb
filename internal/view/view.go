// Package view holds the viewport sinks the navigator frames records in.
//
// Map is a flat 2D frame: the record's box grown by a padding ratio. Scene is
// a 3D camera looking straight down at the box center from an altitude that
// fits the box in the field of view. Both remember the last frame so the
// console can describe it.
package view

import (
	"fmt"
	"math"
	"sync"

	"featnav/internal/geom"
	"featnav/internal/logging"
)

var viewlog = logging.For("view")

const (
	// DefaultPadding grows each side of the framed box by 10%.
	DefaultPadding = 0.1
	// DefaultMinSize is the frame size used for points and other
	// zero-area boxes.
	DefaultMinSize = 1.0
	// DefaultFOV is the scene camera's vertical field of view in degrees.
	DefaultFOV = 60.0
)

// Map frames records on a 2D map.
type Map struct {
	mu      sync.Mutex
	padding float64
	minSize float64
	frame   geom.BoundingBox
	framed  bool
}

// NewMap returns a map view. A negative padding is treated as zero and a
// non-positive minSize falls back to DefaultMinSize.
func NewMap(padding, minSize float64) *Map {
	if padding < 0 {
		padding = 0
	}
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Map{padding: padding, minSize: minSize}
}

// ApplyExtent frames box, padded.
func (m *Map) ApplyExtent(box geom.BoundingBox) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = box.Pad(m.padding, m.minSize)
	m.framed = true
	viewlog.Debug("map framed", "extent", m.frame.String())
}

// Frame returns the current frame, or false before the first ApplyExtent.
func (m *Map) Frame() (geom.BoundingBox, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame, m.framed
}

// Describe renders the view state for operators.
func (m *Map) Describe() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.framed {
		return "nothing framed"
	}
	c := m.frame.Center()
	return fmt.Sprintf("extent %s center (%g, %g) size %g x %g",
		m.frame, c.X(), c.Y(), m.frame.Width(), m.frame.Height())
}

// Camera is a scene camera pose. Heading and pitch are fixed: the camera
// looks straight down.
type Camera struct {
	X, Y     float64
	Altitude float64
	FOV      float64
}

// Scene frames records with a 3D camera.
type Scene struct {
	mu      sync.Mutex
	fov     float64
	padding float64
	minSize float64
	camera  Camera
	placed  bool
}

// NewScene returns a scene view with the given vertical field of view in
// degrees. Values outside (0, 180) fall back to DefaultFOV.
func NewScene(fovDegrees, padding float64) *Scene {
	if fovDegrees <= 0 || fovDegrees >= 180 {
		fovDegrees = DefaultFOV
	}
	if padding < 0 {
		padding = 0
	}
	return &Scene{fov: fovDegrees, padding: padding, minSize: DefaultMinSize}
}

// ApplyExtent moves the camera over the center of box at the altitude where
// the padded box diagonal fills the field of view.
func (s *Scene) ApplyExtent(box geom.BoundingBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = CameraFor(box.Pad(s.padding, s.minSize), s.fov)
	s.placed = true
	viewlog.Debug("camera placed", "x", s.camera.X, "y", s.camera.Y, "altitude", s.camera.Altitude)
}

// Camera returns the current pose, or false before the first ApplyExtent.
func (s *Scene) Camera() (Camera, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera, s.placed
}

// Describe renders the view state for operators.
func (s *Scene) Describe() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.placed {
		return "camera not placed"
	}
	return fmt.Sprintf("camera (%g, %g) altitude %.3f fov %g",
		s.camera.X, s.camera.Y, s.camera.Altitude, s.camera.FOV)
}

// CameraFor computes the pose that fits box in a vertical field of view of
// fovDegrees: altitude = (diagonal/2) / tan(fov/2).
func CameraFor(box geom.BoundingBox, fovDegrees float64) Camera {
	c := box.Center()
	half := fovDegrees * math.Pi / 360
	return Camera{
		X:        c.X(),
		Y:        c.Y(),
		Altitude: (box.Diagonal() / 2) / math.Tan(half),
		FOV:      fovDegrees,
	}
}
