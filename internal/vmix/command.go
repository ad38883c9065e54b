package vmix

import (
	"fmt"
	"net/url"
	"strconv"
)

// Kind identifies a controller command.
type Kind string

const (
	KindPreview     Kind = "preview"
	KindQuickPlay   Kind = "quickplay"
	KindCut         Kind = "cut"
	KindOverlaySet  Kind = "overlay_set"
	KindOverlayOut  Kind = "overlay_out"
	KindFadeToBlack Kind = "fade_to_black"
)

// Command is a single instruction for the vMix host. Input carries the target
// input identifier where the kind requires one; Layer is the overlay layer
// (1-4) for overlay kinds.
type Command struct {
	Kind  Kind
	Input string
	Layer int
}

// NeedsInput reports whether this command kind targets a specific input.
func (c Command) NeedsInput() bool {
	switch c.Kind {
	case KindPreview, KindQuickPlay, KindCut, KindOverlaySet:
		return true
	}
	return false
}

// Retryable reports whether the command may be re-sent after a transient
// failure. Transition commands are sent at most once: a duplicated Fade or
// Cut would flip program and preview a second time.
func (c Command) Retryable() bool {
	switch c.Kind {
	case KindQuickPlay, KindCut:
		return false
	}
	return true
}

func (c Command) String() string {
	switch {
	case c.Kind == KindOverlaySet:
		return fmt.Sprintf("%s layer=%d input=%s", c.Kind, c.Layer, c.Input)
	case c.Kind == KindOverlayOut:
		return fmt.Sprintf("%s layer=%d", c.Kind, c.Layer)
	case c.Input != "":
		return fmt.Sprintf("%s input=%s", c.Kind, c.Input)
	}
	return string(c.Kind)
}

// Encode maps the command onto its vMix function name and query parameters.
func (c Command) Encode() (string, url.Values, error) {
	params := url.Values{}
	switch c.Kind {
	case KindPreview:
		if c.Input == "" {
			return "", nil, fmt.Errorf("preview command requires an input")
		}
		params.Set("Input", c.Input)
		return "PreviewInput", params, nil
	case KindQuickPlay:
		if c.Input == "" {
			return "", nil, fmt.Errorf("quickplay command requires an input")
		}
		params.Set("Input", c.Input)
		return "Fade", params, nil
	case KindCut:
		if c.Input == "" {
			return "", nil, fmt.Errorf("cut command requires an input")
		}
		params.Set("Input", c.Input)
		return "Cut", params, nil
	case KindOverlaySet:
		if err := validLayer(c.Layer); err != nil {
			return "", nil, err
		}
		if c.Input == "" {
			return "", nil, fmt.Errorf("overlay command requires an input")
		}
		params.Set("Input", c.Input)
		return "OverlayInput" + strconv.Itoa(c.Layer), params, nil
	case KindOverlayOut:
		if err := validLayer(c.Layer); err != nil {
			return "", nil, err
		}
		return "OverlayInput" + strconv.Itoa(c.Layer) + "Out", params, nil
	case KindFadeToBlack:
		return "FadeToBlack", params, nil
	}
	return "", nil, fmt.Errorf("unknown command kind %q", c.Kind)
}

func validLayer(layer int) error {
	if layer < 1 || layer > 4 {
		return fmt.Errorf("overlay layer must be 1-4, got %d", layer)
	}
	return nil
}
