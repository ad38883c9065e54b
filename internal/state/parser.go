package state

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError indicates a structurally invalid state document. Missing
// optional fields are not parse errors; callers treat a ParseError as "this
// poll produced nothing usable" and keep the prior snapshot.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse vmix state: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

type xmlDocument struct {
	XMLName       xml.Name     `xml:"vmix"`
	Inputs        []xmlInput   `xml:"inputs>input"`
	Overlays      []xmlOverlay `xml:"overlays>overlay"`
	Preview       string       `xml:"preview"`
	Active        string       `xml:"active"`
	FadeToBlack   string       `xml:"fadeToBlack"`
	Transitioning string       `xml:"transitioning"`
}

type xmlInput struct {
	Key    string `xml:"key,attr"`
	Number string `xml:"number,attr"`
	Title  string `xml:"title,attr"`
	Short  string `xml:"shortTitle,attr"`
	Type   string `xml:"type,attr"`
	State  string `xml:"state,attr"`
	Text   string `xml:",chardata"`
}

type xmlOverlay struct {
	Number string `xml:"number,attr"`
	Input  string `xml:",chardata"`
}

// Parse converts a raw vMix XML state document into a Snapshot. Unknown
// elements and attributes are ignored for forward compatibility with newer
// vMix versions.
func Parse(raw []byte) (*Snapshot, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	snap := &Snapshot{CapturedAt: time.Now().UTC()}
	byNumber := make(map[string]string, len(doc.Inputs))

	for _, in := range doc.Inputs {
		number := strings.TrimSpace(in.Number)
		if number == "" {
			return nil, &ParseError{Err: fmt.Errorf("input element missing number attribute")}
		}
		ordinal, err := strconv.Atoi(number)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("input number %q: %w", number, err)}
		}

		id := strings.TrimSpace(in.Key)
		if id == "" {
			id = number
		}

		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = strings.TrimSpace(in.Text)
		}
		if title == "" {
			title = "Input " + number
		}

		snap.Inputs = append(snap.Inputs, Input{
			ID:     id,
			Number: ordinal,
			Name:   title,
			Short:  strings.TrimSpace(in.Short),
			Type:   strings.TrimSpace(in.Type),
			State:  strings.TrimSpace(in.State),
		})
		byNumber[number] = id
	}

	snap.ActiveID = resolveRef(byNumber, doc.Active)
	snap.PreviewID = resolveRef(byNumber, doc.Preview)

	for _, ov := range doc.Overlays {
		layer, err := strconv.Atoi(strings.TrimSpace(ov.Number))
		if err != nil || layer < 1 || layer > OverlayLayers {
			continue
		}
		snap.Overlays[layer-1] = resolveRef(byNumber, ov.Input)
	}

	snap.FadeToBlack = parseBool(doc.FadeToBlack)
	snap.Transitioning = parseBool(doc.Transitioning)
	return snap, nil
}

// resolveRef maps an input-number reference to its stable ID. References to
// inputs absent from the document normalize to empty.
func resolveRef(byNumber map[string]string, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "0" {
		return ""
	}
	if id, ok := byNumber[ref]; ok {
		return id
	}
	// Some vMix builds reference inputs by key in mix elements.
	for _, id := range byNumber {
		if id == ref {
			return id
		}
	}
	return ""
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
