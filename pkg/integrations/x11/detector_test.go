package x11

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/jezek/xgb/xproto"

	"github.com/xusing/xusing/pkg/window"
)

func TestParseWMClass(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []string
	}{
		{
			name:     "Instance and class",
			input:    []byte("Navigator\x00Firefox\x00"),
			expected: []string{"Navigator", "Firefox"},
		},
		{
			name:     "Same instance and class",
			input:    []byte("kitty\x00kitty\x00"),
			expected: []string{"kitty", "kitty"},
		},
		{
			name:     "Missing trailing terminator",
			input:    []byte("xterm\x00XTerm"),
			expected: []string{"xterm", "XTerm"},
		},
		{
			name:     "Single entry",
			input:    []byte("emacs\x00"),
			expected: []string{"emacs"},
		},
		{
			name:     "Empty property",
			input:    nil,
			expected: nil,
		},
		{
			name:     "Only terminators",
			input:    []byte("\x00\x00"),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseWMClass(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("parseWMClass(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// chunkedProperty serves value in chunks of size bytes, the way the server
// answers GetProperty with a long-length limit.
func chunkedProperty(value []byte, size int, calls *int) propertyChunk {
	return func(offset uint32) ([]byte, uint32, error) {
		*calls++
		start := int(offset) * 4
		if start > len(value) {
			start = len(value)
		}
		end := start + size
		if end > len(value) {
			end = len(value)
		}
		return value[start:end], uint32(len(value) - end), nil
	}
}

func TestReadProperty(t *testing.T) {
	long := bytes.Repeat([]byte("title "), 500)

	tests := []struct {
		name      string
		value     []byte
		size      int
		wantCalls int
	}{
		{name: "Single chunk", value: []byte("xterm"), size: propertyLength * 4, wantCalls: 1},
		{name: "Longer than one chunk", value: long, size: propertyLength * 4, wantCalls: 3},
		{name: "Empty", value: nil, size: propertyLength * 4, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := readProperty(chunkedProperty(tt.value, tt.size, &calls))
			if err != nil {
				t.Fatalf("readProperty() error: %v", err)
			}
			if !bytes.Equal(got, tt.value) {
				t.Errorf("readProperty() returned %d bytes, want %d", len(got), len(tt.value))
			}
			if calls != tt.wantCalls {
				t.Errorf("readProperty() made %d requests, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestReadPropertyLimits(t *testing.T) {
	calls := 0
	huge := bytes.Repeat([]byte{'a'}, (maxPropertyChunks+10)*propertyLength*4)
	got, err := readProperty(chunkedProperty(huge, propertyLength*4, &calls))
	if err != nil {
		t.Fatalf("readProperty() error: %v", err)
	}
	if calls != maxPropertyChunks {
		t.Errorf("readProperty() made %d requests, want %d", calls, maxPropertyChunks)
	}
	if len(got) != maxPropertyChunks*propertyLength*4 {
		t.Errorf("readProperty() returned %d bytes", len(got))
	}

	// A type mismatch yields no value but a non-zero remainder
	calls = 0
	got, err = readProperty(func(uint32) ([]byte, uint32, error) {
		calls++
		return nil, 40, nil
	})
	if err != nil || len(got) != 0 || calls != 1 {
		t.Errorf("readProperty() on type mismatch = %q, %v after %d requests", got, err, calls)
	}

	_, err = readProperty(func(uint32) ([]byte, uint32, error) {
		return nil, 0, errors.New("bad window")
	})
	if err == nil {
		t.Error("readProperty() ignored a request error")
	}
}

func TestReadWindowName(t *testing.T) {
	atoms := map[string]xproto.Atom{
		"_NET_WM_NAME": 300,
		"UTF8_STRING":  301,
		"WM_NAME":      xproto.AtomWmName,
	}

	// properties only answer requests of their own type, or of any type
	type property struct {
		atomType xproto.Atom
		value    string
	}

	tests := []struct {
		name     string
		props    map[xproto.Atom]property
		expected string
	}{
		{
			name: "EWMH name preferred",
			props: map[xproto.Atom]property{
				300:               {atomType: 301, value: "Mozilla Firefox"},
				xproto.AtomWmName: {atomType: xproto.AtomString, value: "firefox"},
			},
			expected: "Mozilla Firefox",
		},
		{
			name: "STRING WM_NAME",
			props: map[xproto.Atom]property{
				xproto.AtomWmName: {atomType: xproto.AtomString, value: "xterm\x00"},
			},
			expected: "xterm",
		},
		{
			name: "COMPOUND_TEXT WM_NAME",
			props: map[xproto.Atom]property{
				xproto.AtomWmName: {atomType: 302, value: "emacs@host"},
			},
			expected: "emacs@host",
		},
		{
			name:     "No name",
			props:    map[xproto.Atom]property{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			get := func(atom, atomType xproto.Atom) ([]byte, error) {
				p, ok := tt.props[atom]
				if !ok {
					return nil, nil
				}
				if atomType != xproto.GetPropertyTypeAny && atomType != p.atomType {
					return nil, nil
				}
				return []byte(p.value), nil
			}

			if got := readWindowName(get, atoms); got != tt.expected {
				t.Errorf("readWindowName() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOpenWithoutDisplay(t *testing.T) {
	_, err := Open(":9999")
	if err == nil {
		t.Skip("a display unexpectedly answered on :9999")
	}
	if !errors.Is(err, window.ErrSessionUnavailable) {
		t.Errorf("Open() error = %v, want ErrSessionUnavailable", err)
	}
}

func TestLiveSession(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("DISPLAY not set")
	}

	s, err := Open("")
	if err != nil {
		t.Skipf("X session not available: %v", err)
	}
	defer s.Close()

	idle, err := s.IdleDuration()
	if err != nil {
		t.Fatalf("IdleDuration() error: %v", err)
	}
	if idle < 0 {
		t.Errorf("IdleDuration() is negative: %v", idle)
	}
	t.Logf("Idle: %v", idle)

	if info := s.FocusedWindow(); info != nil {
		t.Logf("Classes: %v", info.Classes)
		t.Logf("Name: %s", info.Name)
	}
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Session = (*Session)(nil)
}
