package state

import (
	"errors"
	"testing"
)

const sampleDocument = `<vmix>
  <version>27.0.0.49</version>
  <edition>4K</edition>
  <inputs>
    <input key="aaa-111" number="1" type="Camera" title="Camera 1" shortTitle="Cam1" state="Running">Camera 1</input>
    <input key="bbb-222" number="2" type="Camera" title="Camera 2" shortTitle="Cam2" state="Running">Camera 2</input>
    <input key="ccc-333" number="3" type="GT" title="Lower Third" state="Paused">Lower Third</input>
  </inputs>
  <overlays>
    <overlay number="1">3</overlay>
    <overlay number="2"/>
    <overlay number="3"/>
    <overlay number="4"/>
  </overlays>
  <preview>2</preview>
  <active>1</active>
  <fadeToBlack>False</fadeToBlack>
  <recording>False</recording>
  <streaming>True</streaming>
</vmix>`

func TestParseFullDocument(t *testing.T) {
	snap, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(snap.Inputs) != 3 {
		t.Fatalf("inputs = %d, want 3", len(snap.Inputs))
	}
	if snap.ActiveID != "aaa-111" {
		t.Fatalf("ActiveID = %q, want aaa-111", snap.ActiveID)
	}
	if snap.PreviewID != "bbb-222" {
		t.Fatalf("PreviewID = %q, want bbb-222", snap.PreviewID)
	}
	if got := snap.Overlay(1); got != "ccc-333" {
		t.Fatalf("overlay 1 = %q, want ccc-333", got)
	}
	for layer := 2; layer <= 4; layer++ {
		if got := snap.Overlay(layer); got != "" {
			t.Fatalf("overlay %d = %q, want empty", layer, got)
		}
	}
	if snap.FadeToBlack {
		t.Fatal("FadeToBlack should be false")
	}
	if snap.Transitioning {
		t.Fatal("Transitioning should default to false")
	}

	in, ok := snap.InputByID("ccc-333")
	if !ok {
		t.Fatal("input ccc-333 not found")
	}
	if in.Number != 3 || in.Name != "Lower Third" || in.Type != "GT" {
		t.Fatalf("unexpected input: %+v", in)
	}
	if in.DisplayName() != "Lower Third" {
		t.Fatalf("DisplayName = %q", in.DisplayName())
	}
}

func TestParseFallsBackToNumberWhenKeyMissing(t *testing.T) {
	doc := `<vmix><inputs><input number="1" title="Cam"/></inputs><active>1</active></vmix>`
	snap, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if snap.ActiveID != "1" {
		t.Fatalf("ActiveID = %q, want 1", snap.ActiveID)
	}
	if snap.PreviewID != "" {
		t.Fatalf("PreviewID = %q, want empty", snap.PreviewID)
	}
}

func TestParseNormalizesDanglingReferences(t *testing.T) {
	doc := `<vmix>
  <inputs><input key="aaa" number="1" title="Cam"/></inputs>
  <overlays><overlay number="1">7</overlay></overlays>
  <preview>9</preview>
  <active>1</active>
</vmix>`
	snap, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := snap.Overlay(1); got != "" {
		t.Fatalf("dangling overlay = %q, want empty", got)
	}
	if snap.PreviewID != "" {
		t.Fatalf("dangling preview = %q, want empty", snap.PreviewID)
	}
	if snap.ActiveID != "aaa" {
		t.Fatalf("ActiveID = %q, want aaa", snap.ActiveID)
	}
}

func TestParseIgnoresUnknownFieldsAndBadOverlayNumbers(t *testing.T) {
	doc := `<vmix>
  <inputs><input key="aaa" number="1" title="Cam" futureAttr="x"/></inputs>
  <overlays><overlay number="9">1</overlay><overlay number="abc">1</overlay></overlays>
  <somethingNew>hello</somethingNew>
  <fadeToBlack>True</fadeToBlack>
</vmix>`
	snap, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !snap.FadeToBlack {
		t.Fatal("FadeToBlack should be true")
	}
	for layer := 1; layer <= 4; layer++ {
		if snap.Overlay(layer) != "" {
			t.Fatalf("overlay %d should be empty", layer)
		}
	}
}

func TestParseStructurallyInvalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "not xml", doc: "this is not xml at all <"},
		{name: "input missing number", doc: `<vmix><inputs><input title="Cam"/></inputs></vmix>`},
		{name: "non numeric input number", doc: `<vmix><inputs><input number="one" title="Cam"/></inputs></vmix>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected parse error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseMissingOptionalSections(t *testing.T) {
	snap, err := Parse([]byte(`<vmix><inputs></inputs></vmix>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(snap.Inputs) != 0 || snap.ActiveID != "" || snap.FadeToBlack {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
