package entity

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet holds one face's landmarks; the slice index is the detector's
// canonical landmark id.
type LandmarkSet []Point

func (l LandmarkSet) Get(id int) (Point, bool) {
	if id < 0 || id >= len(l) {
		return Point{}, false
	}
	return l[id], true
}

type FaceLandmarks struct {
	Faces []LandmarkSet
}

func (f *FaceLandmarks) HasFace() bool {
	return f != nil && len(f.Faces) > 0 && len(f.Faces[0]) > 0
}

// Primary returns the first detected face. Only one face is ever considered.
func (f *FaceLandmarks) Primary() LandmarkSet {
	if !f.HasFace() {
		return nil
	}
	return f.Faces[0]
}

type Frame struct {
	Data     []byte
	MIMEType string
	Format   string
	Width    int
	Height   int
}
