package state

import "time"

// OverlayLayers is the number of overlay layers the controller manages.
const OverlayLayers = 4

// Input describes a single vMix input.
type Input struct {
	// ID is the stable identifier: the vMix key GUID when present, the
	// input number otherwise.
	ID string
	// Number is the ordinal position vMix assigned at parse time.
	Number int
	Name   string
	Short  string
	Type   string
	State  string
}

// DisplayName prefers the short title when vMix provides one.
func (i Input) DisplayName() string {
	if i.Short != "" {
		return i.Short
	}
	return i.Name
}

// Snapshot is one consistent observation of the mixer state. A Snapshot is
// immutable once constructed; ingestion replaces the previous one atomically.
type Snapshot struct {
	Inputs    []Input
	ActiveID  string
	PreviewID string
	// Overlays holds the assigned input ID per layer (index 0 is layer 1);
	// empty string means the layer is clear.
	Overlays      [OverlayLayers]string
	FadeToBlack   bool
	Transitioning bool
	CapturedAt    time.Time
}

// InputByID returns the input with the given stable identifier.
func (s *Snapshot) InputByID(id string) (Input, bool) {
	if s == nil || id == "" {
		return Input{}, false
	}
	for _, in := range s.Inputs {
		if in.ID == id {
			return in, true
		}
	}
	return Input{}, false
}

// HasInput reports whether the snapshot contains an input with the given ID.
func (s *Snapshot) HasInput(id string) bool {
	_, ok := s.InputByID(id)
	return ok
}

// Overlay returns the input ID assigned to the given layer (1-based), or
// empty when the layer is clear or out of range.
func (s *Snapshot) Overlay(layer int) string {
	if s == nil || layer < 1 || layer > OverlayLayers {
		return ""
	}
	return s.Overlays[layer-1]
}
