package marker

import (
	"math"
	"testing"

	"github.com/ppiankov/rubriccheck/internal/model"
)

func intPtr(i int) *int {
	return &i
}

func TestResolve_NoCoordinates(t *testing.T) {
	if pos, ok := Resolve(model.CriterionResult{Criterion: "Thesis"}, 0); ok || pos != nil {
		t.Errorf("Expected no marker, got %+v", pos)
	}
}

func TestResolve_DefaultsToFirstFile(t *testing.T) {
	c := model.CriterionResult{
		Status:            model.StatusWeak,
		VisualCoordinates: &model.VisualCoordinates{X: 25.5, Y: 80},
	}

	pos, ok := Resolve(c, 0)
	if !ok {
		t.Fatal("Expected marker on file 0")
	}
	if pos.X != 25.5 || pos.Y != 80 {
		t.Errorf("Expected (25.5, 80), got (%v, %v)", pos.X, pos.Y)
	}
	if pos.Anchor != AnchorBottomCenter {
		t.Errorf("Expected bottom-center anchor, got %s", pos.Anchor)
	}
	if pos.Label != "WEAK" || pos.Color != "yellow" {
		t.Errorf("Unexpected label/color %s/%s", pos.Label, pos.Color)
	}

	if _, ok := Resolve(c, 1); ok {
		t.Error("Expected no marker on file 1")
	}
}

func TestResolve_ExplicitFile(t *testing.T) {
	override := model.StatusMet
	c := model.CriterionResult{
		Status:            model.StatusMissing,
		UserStatus:        &override,
		VisualCoordinates: &model.VisualCoordinates{X: 50, Y: 50, FileIndex: intPtr(2)},
	}

	for _, idx := range []int{0, 1, 3} {
		if _, ok := Resolve(c, idx); ok {
			t.Errorf("Expected no marker on file %d", idx)
		}
	}

	pos, ok := Resolve(c, 2)
	if !ok {
		t.Fatal("Expected marker on file 2")
	}
	if pos.Status != model.StatusMet || pos.Label != "GOOD" || pos.Color != "green" {
		t.Errorf("Expected effective status styling, got %+v", pos)
	}
}

func TestResolve_ClampsCoordinates(t *testing.T) {
	c := model.CriterionResult{VisualCoordinates: &model.VisualCoordinates{X: -5, Y: 140}}
	pos, _ := Resolve(c, 0)
	if pos.X != 0 || pos.Y != 100 {
		t.Errorf("Expected clamped (0, 100), got (%v, %v)", pos.X, pos.Y)
	}

	c.VisualCoordinates.X = math.NaN()
	pos, _ = Resolve(c, 0)
	if pos.X != 0 {
		t.Errorf("Expected NaN to clamp to 0, got %v", pos.X)
	}
}

func TestResolveAll(t *testing.T) {
	criteria := []model.CriterionResult{
		{Criterion: "A", VisualCoordinates: &model.VisualCoordinates{X: 1, Y: 1}},
		{Criterion: "B"},
		{Criterion: "C", VisualCoordinates: &model.VisualCoordinates{X: 2, Y: 2, FileIndex: intPtr(1)}},
		{Criterion: "D", VisualCoordinates: &model.VisualCoordinates{X: 3, Y: 3, FileIndex: intPtr(0)}},
	}

	markers := ResolveAll(criteria, 0)
	if len(markers) != 2 {
		t.Fatalf("Expected 2 markers, got %d", len(markers))
	}
	if markers[0].Index != 0 || markers[1].Index != 3 || markers[1].Criterion != "D" {
		t.Errorf("Unexpected markers %+v", markers)
	}
}
