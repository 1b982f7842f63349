// Package config holds the persisted bridge settings and their YAML form.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Note encodings.
const (
	NoteEncodingTyped = "typed"
	NoteEncodingMIDI  = "midi"
)

const (
	DefaultServerAddress = "255.255.255.255"
	DefaultServerPort    = 12345
	DefaultAddressBase   = "osclap"
	DefaultSampleRate    = 100
	MaxSampleRate        = 1000
	DefaultQueueCapacity = 65536
	DefaultParamCount    = 8
	DefaultParamStep     = 0.001
)

// Settings mirrors what the host persists for one bridge instance.
type Settings struct {
	ServerAddress string  `yaml:"osc_server_address"`
	ServerPort    int     `yaml:"osc_server_port"`
	AddressBase   string  `yaml:"osc_address_base"`
	SendMIDI      bool    `yaml:"flag_send_midi"`
	SendAudio     bool    `yaml:"flag_send_audio"`
	SampleRate    int     `yaml:"osc_sample_rate"` // target audio telemetry rate in Hz, 0 disables
	NoteEncoding  string  `yaml:"note_encoding"`   // typed, midi
	QueueCapacity int     `yaml:"queue_capacity"`
	Params        []Param `yaml:"params"`
}

// Param is one automatable float parameter.
type Param struct {
	Name  string  `yaml:"name"`
	Value float32 `yaml:"value"`
	Min   float32 `yaml:"min"`
	Max   float32 `yaml:"max"`
	Step  float32 `yaml:"step"`
}

// Default returns the settings of a freshly created instance.
func Default() Settings {
	s := Settings{
		ServerAddress: DefaultServerAddress,
		ServerPort:    DefaultServerPort,
		AddressBase:   DefaultAddressBase,
		SendMIDI:      true,
		SendAudio:     false,
		SampleRate:    DefaultSampleRate,
		NoteEncoding:  NoteEncodingTyped,
		QueueCapacity: DefaultQueueCapacity,
		Params:        make([]Param, DefaultParamCount),
	}
	for i := range s.Params {
		s.Params[i] = Param{
			Name: fmt.Sprintf("param%d", i+1),
			Max:  1,
			Step: DefaultParamStep,
		}
	}
	return s
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Save writes s to path as YAML.
func Save(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// Validate checks s and fills in defaults for omitted optional values.
// Parameter values are clamped and quantized to their step.
func (s *Settings) Validate() error {
	if s.ServerAddress == "" {
		return fmt.Errorf("%w: osc_server_address is required", ErrInvalid)
	}
	if s.ServerPort <= 0 || s.ServerPort > 65535 {
		return fmt.Errorf("%w: osc_server_port %d out of range 1..65535", ErrInvalid, s.ServerPort)
	}
	if s.SampleRate < 0 || s.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: osc_sample_rate %d out of range 0..%d", ErrInvalid, s.SampleRate, MaxSampleRate)
	}

	switch s.NoteEncoding {
	case "":
		s.NoteEncoding = NoteEncodingTyped
	case NoteEncodingTyped, NoteEncodingMIDI:
	default:
		return fmt.Errorf("%w: note_encoding must be %q or %q, got %q", ErrInvalid, NoteEncodingTyped, NoteEncodingMIDI, s.NoteEncoding)
	}

	if s.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue_capacity must be >= 0", ErrInvalid)
	}
	if s.QueueCapacity == 0 {
		s.QueueCapacity = DefaultQueueCapacity
	}

	seen := make(map[string]bool, len(s.Params))
	for i := range s.Params {
		p := &s.Params[i]
		if p.Name == "" {
			return fmt.Errorf("%w: params[%d]: name is required", ErrInvalid, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: params[%d]: duplicate name %q", ErrInvalid, i, p.Name)
		}
		seen[p.Name] = true

		if p.Min == 0 && p.Max == 0 {
			p.Max = 1
			if p.Step == 0 {
				p.Step = DefaultParamStep
			}
		}
		if p.Max <= p.Min {
			return fmt.Errorf("%w: params[%d] %s: max %g <= min %g", ErrInvalid, i, p.Name, p.Max, p.Min)
		}
		if p.Step < 0 {
			return fmt.Errorf("%w: params[%d] %s: negative step", ErrInvalid, i, p.Name)
		}
		p.Value = p.Quantize(p.Value)
	}

	return nil
}

// Quantize clamps v to the parameter range and snaps it to Step.
func (p Param) Quantize(v float32) float32 {
	return Quantize(v, p.Min, p.Max, p.Step)
}

// Quantize clamps v into [lo, hi] and snaps it to the nearest multiple of
// step above lo. NaN maps to lo. A step of zero disables snapping.
func Quantize(v, lo, hi, step float32) float32 {
	if math.IsNaN(float64(v)) {
		return lo
	}
	if step > 0 {
		v = lo + float32(math.Round(float64((v-lo)/step)))*step
	}
	return min(max(v, lo), hi)
}

// SetParam sets the value of the named parameter, quantized. It reports
// whether the parameter exists.
func (s *Settings) SetParam(name string, v float32) bool {
	for i := range s.Params {
		if s.Params[i].Name == name {
			s.Params[i].Value = s.Params[i].Quantize(v)
			return true
		}
	}
	return false
}
