package landmark

import (
	"LivenessGolang/internal/entity"
	"errors"
)

var (
	ErrDetectorUnavailable = errors.New("landmark detector unavailable")
	ErrDetection           = errors.New("landmark detection failed")
	ErrPoolClosed          = errors.New("landmark detector pool closed")
)

// The detector service answers each binary image frame with one JSON
// document. Landmark ids are positions in the landmarks array.
type detectResponse struct {
	Faces []detectedFace `json:"faces"`
	Error string         `json:"error,omitempty"`
}

type detectedFace struct {
	Landmarks []landmarkPoint `json:"landmarks"`
}

type landmarkPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

func (r *detectResponse) toEntity() *entity.FaceLandmarks {
	result := &entity.FaceLandmarks{
		Faces: make([]entity.LandmarkSet, 0, len(r.Faces)),
	}

	for _, face := range r.Faces {
		set := make(entity.LandmarkSet, len(face.Landmarks))
		for i, lm := range face.Landmarks {
			set[i] = entity.Point{X: lm.X, Y: lm.Y}
		}
		result.Faces = append(result.Faces, set)
	}

	return result
}
