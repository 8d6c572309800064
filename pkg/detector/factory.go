package detector

import (
	"os"

	"github.com/pkg/errors"

	"github.com/xusing/xusing/pkg/integrations/x11"
	"github.com/xusing/xusing/pkg/window"
)

// New opens the session for the detected display server. Only X11 sessions
// expose the idle counter and focus tree this program relies on.
func New(display string) (window.Session, error) {
	if display == "" && DetectDisplayServer() != "x11" {
		return nil, errors.Wrapf(window.ErrSessionUnavailable,
			"no X11 display detected (session type %q)", DetectDisplayServer())
	}
	s, err := x11.Open(display)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DetectDisplayServer inspects the environment for the session type
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	x11Display := os.Getenv("DISPLAY")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")

	// XWayland still serves idle and focus queries through DISPLAY
	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	return "unknown"
}
