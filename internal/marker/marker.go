package marker

import (
	"math"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// AnchorBottomCenter places the point at the bottom tip of the pin graphic
const AnchorBottomCenter = "bottom-center"

// Position is a marker location in percentages of the rendered file, so
// it stays correct at any display size
type Position struct {
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Anchor string       `json:"anchor"`
	Status model.Status `json:"status"`
	Label  string       `json:"label"`
	Color  string       `json:"color"`
}

// Marker is a resolved position tied to its criterion
type Marker struct {
	Index     int      `json:"index"`
	Criterion string   `json:"criterion"`
	Position  Position `json:"position"`
}

// Resolve returns the marker for criterion on the file at fileIndex. There
// is no marker when the criterion has no coordinates or they point at a
// different file.
func Resolve(c model.CriterionResult, fileIndex int) (*Position, bool) {
	vc := c.VisualCoordinates
	if vc == nil {
		return nil, false
	}
	if vc.File() != fileIndex {
		return nil, false
	}

	status := c.Effective()
	return &Position{
		X:      clamp(vc.X),
		Y:      clamp(vc.Y),
		Anchor: AnchorBottomCenter,
		Status: status,
		Label:  status.Label(),
		Color:  status.Color(),
	}, true
}

// ResolveAll returns the markers on one file in criteria order
func ResolveAll(criteria []model.CriterionResult, fileIndex int) []Marker {
	var markers []Marker
	for i, c := range criteria {
		if pos, ok := Resolve(c, fileIndex); ok {
			markers = append(markers, Marker{Index: i, Criterion: c.Criterion, Position: *pos})
		}
	}
	return markers
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
