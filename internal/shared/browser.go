package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

// CourseURL builds the web frontend link for a course, e.g. http://localhost:5173/course/<id>.
func CourseURL(frontendURL, courseID string) (string, error) {
	if courseID == "" {
		return "", fmt.Errorf("%w: course id", ErrMissingArgument)
	}
	base, err := url.Parse(strings.TrimRight(frontendURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: frontend_url %q", ErrInvalidConfig, frontendURL)
	}
	return base.JoinPath("course", courseID).String(), nil
}
