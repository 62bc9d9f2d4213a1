package replay

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Encoder writes frames to a stream in a renderer-specific format
type Encoder interface {
	Encode(w io.Writer, frames []Frame) error
}

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// NewEncoder returns the encoder registered for format
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case FormatJSON, "":
		return JSONEncoder{}, nil
	case FormatYAML:
		return YAMLEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// JSONEncoder writes one JSON object per frame, newline separated.
// Property maps are written with sorted keys.
type JSONEncoder struct{}

func (JSONEncoder) Encode(w io.Writer, frames []Frame) error {
	enc := json.NewEncoder(w)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode frame %d@%v: %w", f.Turn, f.Time, err)
		}
	}
	return nil
}

// YAMLEncoder writes one YAML document per frame
type YAMLEncoder struct{}

func (YAMLEncoder) Encode(w io.Writer, frames []Frame) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode frame %d@%v: %w", f.Turn, f.Time, err)
		}
	}
	return enc.Close()
}

// DecodeJSON reads frames written by JSONEncoder. Numbers decode as float64.
func DecodeJSON(r io.Reader) ([]Frame, error) {
	dec := json.NewDecoder(r)
	var frames []Frame
	for {
		var f Frame
		err := dec.Decode(&f)
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", len(frames), err)
		}
		frames = append(frames, f)
	}
}
