package x11

import (
	"bytes"
	"os"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/xusing/xusing/pkg/window"
)

const (
	// propertyLength is the chunk size of a property read, in 32-bit units
	propertyLength = 256
	// maxPropertyChunks caps a single property at 64 KiB
	maxPropertyChunks = 64
)

var atomNames = []string{
	"_NET_WM_NAME",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Session implements window.Session over a single X connection
type Session struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// Open connects to the given display, or to $DISPLAY when display is empty,
// and initializes the MIT-SCREEN-SAVER extension used for idle queries.
func Open(display string) (*Session, error) {
	if display == "" {
		display = os.Getenv("DISPLAY")
	}

	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrapf(window.ErrSessionUnavailable, "open display %q: %v", display, err)
	}

	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return nil, errors.Wrapf(window.ErrSessionUnavailable, "screen saver extension: %v", err)
	}

	s := &Session{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(window.ErrSessionUnavailable, "intern atom %s: %v", name, err)
		}
		s.atoms[name] = reply.Atom
	}

	return s, nil
}

// DisplayServer returns "x11"
func (s *Session) DisplayServer() string {
	return "x11"
}

// IdleDuration returns the time since the last input event on the session
func (s *Session) IdleDuration() (time.Duration, error) {
	reply, err := screensaver.QueryInfo(s.conn, xproto.Drawable(s.root)).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "query screen saver info")
	}
	return time.Duration(reply.MsSinceUserInput) * time.Millisecond, nil
}

// FocusedWindow returns the class list and name of the window holding input
// focus. If that window carries no WM_CLASS, its immediate parent is used
// instead; no further ancestors are tried.
func (s *Session) FocusedWindow() *window.WindowInfo {
	focus, err := xproto.GetInputFocus(s.conn).Reply()
	if err != nil {
		return nil
	}

	win := focus.Focus
	if win == xproto.WindowNone || win == xproto.InputFocusPointerRoot {
		return nil
	}

	classes := s.windowClass(win)
	if classes == nil {
		tree, err := xproto.QueryTree(s.conn, win).Reply()
		if err != nil || tree.Parent == xproto.WindowNone {
			return nil
		}
		win = tree.Parent
		classes = s.windowClass(win)
	}

	return &window.WindowInfo{
		Classes: classes,
		Name:    s.windowName(win),
	}
}

// Close releases the X connection
func (s *Session) Close() error {
	s.conn.Close()
	return nil
}

func (s *Session) getProperty(win xproto.Window, atom, atomType xproto.Atom) ([]byte, error) {
	return readProperty(func(offset uint32) ([]byte, uint32, error) {
		reply, err := xproto.GetProperty(s.conn, false, win, atom, atomType, offset, propertyLength).Reply()
		if err != nil {
			return nil, 0, err
		}
		return reply.Value, reply.BytesAfter, nil
	})
}

// propertyChunk fetches the part of a property starting at offset (in 32-bit
// units) and reports how many bytes remain after it.
type propertyChunk func(offset uint32) (value []byte, bytesAfter uint32, err error)

// readProperty reads a property in full, one chunk at a time. A reply with
// no value ends the read; the server sends that when the type does not match.
func readProperty(fetch propertyChunk) ([]byte, error) {
	var data []byte
	var offset uint32
	for i := 0; i < maxPropertyChunks; i++ {
		value, after, err := fetch(offset)
		if err != nil {
			return nil, err
		}
		data = append(data, value...)
		if after == 0 || len(value) == 0 {
			break
		}
		offset += uint32(len(value) / 4)
	}
	return data, nil
}

// propertyGetter reads one property of a fixed window
type propertyGetter func(atom, atomType xproto.Atom) ([]byte, error)

func (s *Session) windowClass(win xproto.Window) []string {
	data, err := s.getProperty(win, s.atoms["WM_CLASS"], xproto.AtomString)
	if err != nil {
		return nil
	}
	return parseWMClass(data)
}

func (s *Session) windowName(win xproto.Window) string {
	return readWindowName(func(atom, atomType xproto.Atom) ([]byte, error) {
		return s.getProperty(win, atom, atomType)
	}, s.atoms)
}

// readWindowName prefers _NET_WM_NAME. WM_NAME is read with any type, so
// STRING and COMPOUND_TEXT titles are both returned as raw bytes.
func readWindowName(get propertyGetter, atoms map[string]xproto.Atom) string {
	data, err := get(atoms["_NET_WM_NAME"], atoms["UTF8_STRING"])
	if err == nil && len(data) > 0 {
		return string(bytes.TrimRight(data, "\x00"))
	}

	data, err = get(atoms["WM_NAME"], xproto.GetPropertyTypeAny)
	if err == nil && len(data) > 0 {
		return string(bytes.TrimRight(data, "\x00"))
	}

	return ""
}

// parseWMClass splits a raw WM_CLASS value, a sequence of NUL-terminated
// strings, into its parts. It returns nil when the property is empty.
func parseWMClass(data []byte) []string {
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return nil
	}

	parts := bytes.Split(data, []byte{0})
	classes := make([]string, 0, len(parts))
	for _, p := range parts {
		classes = append(classes, string(p))
	}
	return classes
}
