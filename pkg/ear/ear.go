// Package ear computes the eye aspect ratio from six eye-contour landmarks.
//
// Points follow the classic six-point contour: p1 outer corner, p2 and p3 on
// the upper lid (lateral to medial), p4 inner corner, p5 and p6 on the lower
// lid (medial to lateral).
package ear

import (
	"LivenessGolang/internal/entity"
	"errors"
	"fmt"
	"math"
)

var (
	ErrDegenerateGeometry = errors.New("degenerate eye geometry: zero corner-to-corner distance")
	ErrMissingLandmark    = errors.New("eye landmark missing")
)

type Eye [6]entity.Point

// MediaPipe FaceMesh ids in p1..p6 order.
var (
	LeftEyeIndices  = [6]int{362, 385, 387, 263, 373, 380}
	RightEyeIndices = [6]int{33, 160, 158, 133, 153, 144}
)

// Compute returns (|p2-p6| + |p3-p5|) / (2|p1-p4|).
func Compute(eye Eye) (float64, error) {
	horizontal := distance(eye[0], eye[3])
	if horizontal == 0 || math.IsNaN(horizontal) {
		return 0, ErrDegenerateGeometry
	}

	v1 := distance(eye[1], eye[5])
	v2 := distance(eye[2], eye[4])

	ratio := (v1 + v2) / (2.0 * horizontal)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, ErrDegenerateGeometry
	}

	return ratio, nil
}

func Extract(set entity.LandmarkSet, indices [6]int) (Eye, error) {
	var eye Eye
	for i, id := range indices {
		p, ok := set.Get(id)
		if !ok {
			return Eye{}, fmt.Errorf("%w: id %d", ErrMissingLandmark, id)
		}
		eye[i] = p
	}
	return eye, nil
}

func Average(left, right float64) float64 {
	return (left + right) / 2.0
}

// FromLandmarks extracts both eyes and returns their averaged ratio. Either
// eye failing fails the whole frame.
func FromLandmarks(set entity.LandmarkSet) (float64, error) {
	left, err := eyeRatio(set, LeftEyeIndices)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}

	right, err := eyeRatio(set, RightEyeIndices)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}

	return Average(left, right), nil
}

func eyeRatio(set entity.LandmarkSet, indices [6]int) (float64, error) {
	eye, err := Extract(set, indices)
	if err != nil {
		return 0, err
	}
	return Compute(eye)
}

func distance(a, b entity.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
