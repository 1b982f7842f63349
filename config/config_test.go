package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	s := Default()
	if s.ServerAddress != "255.255.255.255" || s.ServerPort != 12345 || s.AddressBase != "osclap" {
		t.Errorf("Default() connection = %s:%d %q", s.ServerAddress, s.ServerPort, s.AddressBase)
	}
	if !s.SendMIDI || s.SendAudio {
		t.Errorf("Default() flags midi=%v audio=%v, want true/false", s.SendMIDI, s.SendAudio)
	}
	if s.SampleRate != 100 {
		t.Errorf("Default() SampleRate = %d, want 100", s.SampleRate)
	}
	if len(s.Params) != 8 || s.Params[0].Name != "param1" || s.Params[7].Name != "param8" {
		t.Errorf("Default() params = %+v", s.Params)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"default", func(*Settings) {}, false},
		{"empty_address", func(s *Settings) { s.ServerAddress = "" }, true},
		{"port_zero", func(s *Settings) { s.ServerPort = 0 }, true},
		{"port_too_large", func(s *Settings) { s.ServerPort = 70000 }, true},
		{"rate_negative", func(s *Settings) { s.SampleRate = -1 }, true},
		{"rate_too_high", func(s *Settings) { s.SampleRate = 1001 }, true},
		{"rate_zero", func(s *Settings) { s.SampleRate = 0 }, false},
		{"empty_base", func(s *Settings) { s.AddressBase = "" }, false},
		{"midi_encoding", func(s *Settings) { s.NoteEncoding = NoteEncodingMIDI }, false},
		{"bad_encoding", func(s *Settings) { s.NoteEncoding = "sysex" }, true},
		{"negative_queue", func(s *Settings) { s.QueueCapacity = -1 }, true},
		{"unnamed_param", func(s *Settings) { s.Params[2].Name = "" }, true},
		{"duplicate_param", func(s *Settings) { s.Params[1].Name = "param1" }, true},
		{"inverted_range", func(s *Settings) { s.Params[0].Min, s.Params[0].Max = 1, 0.5 }, true},
		{"negative_step", func(s *Settings) { s.Params[0].Step = -0.1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	s := Default()
	s.NoteEncoding = ""
	s.QueueCapacity = 0
	s.Params = []Param{{Name: "cutoff", Value: 0.25}}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.NoteEncoding != NoteEncodingTyped {
		t.Errorf("NoteEncoding = %q, want %q", s.NoteEncoding, NoteEncodingTyped)
	}
	if s.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("QueueCapacity = %d, want %d", s.QueueCapacity, DefaultQueueCapacity)
	}
	if p := s.Params[0]; p.Max != 1 || p.Step != DefaultParamStep {
		t.Errorf("param range = [%g, %g] step %g, want [0, 1] step %g", p.Min, p.Max, p.Step, DefaultParamStep)
	}
}

func TestQuantizeRange(t *testing.T) {
	tests := []struct {
		v, lo, hi, step, want float32
	}{
		{0.3, -1, 1, 0.5, 0.5},
		{0.3, -1, 1, 0, 0.3},
		{5, -1, 1, 0, 1},
		{float32(math.NaN()), -1, 1, 0.5, -1},
	}
	for _, tt := range tests {
		if got := Quantize(tt.v, tt.lo, tt.hi, tt.step); math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("Quantize(%v, %v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, tt.step, got, tt.want)
		}
	}
}

func TestQuantize(t *testing.T) {
	p := Param{Name: "p", Min: 0, Max: 1, Step: 0.001}
	tests := []struct {
		in, want float32
	}{
		{0.5, 0.5},
		{0.12345, 0.123},
		{0.12351, 0.124},
		{-3, 0},
		{7, 1},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := p.Quantize(tt.in); math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetParam(t *testing.T) {
	s := Default()
	if !s.SetParam("param3", 0.4567) {
		t.Fatal("SetParam(param3) = false")
	}
	if got := s.Params[2].Value; math.Abs(float64(got-0.457)) > 1e-6 {
		t.Errorf("param3 = %v, want 0.457", got)
	}
	if s.SetParam("missing", 1) {
		t.Error("SetParam(missing) = true")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")

	want := Default()
	want.ServerAddress = "127.0.0.1"
	want.ServerPort = 9000
	want.AddressBase = "synth"
	want.SendAudio = true
	want.SampleRate = 250
	want.NoteEncoding = NoteEncodingMIDI
	want.SetParam("param1", 0.75)

	if err := Save(path, &want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("Load() = %+v, want %+v", *got, want)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	data := []byte("osc_server_address: 10.0.0.255\nflag_send_audio: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.ServerAddress != "10.0.0.255" || !s.SendAudio {
		t.Errorf("Load() = %+v, overrides not applied", s)
	}
	if s.ServerPort != DefaultServerPort || s.AddressBase != DefaultAddressBase || !s.SendMIDI {
		t.Errorf("Load() = %+v, defaults lost", s)
	}
	if len(s.Params) != DefaultParamCount {
		t.Errorf("len(Params) = %d, want %d", len(s.Params), DefaultParamCount)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("osc_server_port: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load(malformed) error = nil")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("osc_sample_rate: 5000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(invalid); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load(invalid) error = %v, want ErrInvalid", err)
	}
}
