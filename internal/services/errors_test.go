package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "download", "yt-dlp", "403 forbidden", inner)

	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("cause lost: %v", err)
	}
	for _, part := range []string{"download", "yt-dlp", "403 forbidden"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("message missing %q: %v", part, err)
		}
	}
}

func TestWrap_NilMarkerDefaultsToExternalTool(t *testing.T) {
	t.Parallel()

	err := Wrap(nil, "stage", "", "", errors.New("boom"))
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected external tool marker: %v", err)
	}
}

func TestUserFixable(t *testing.T) {
	t.Parallel()

	if !UserFixable(Wrap(ErrInput, "cli", "persona", "unknown", nil)) {
		t.Fatal("input errors are user fixable")
	}
	if !UserFixable(Wrap(ErrNotFound, "metadata", "fetch", "private video", nil)) {
		t.Fatal("not found errors are user fixable")
	}
	if UserFixable(Wrap(ErrExternalTool, "download", "yt-dlp", "", nil)) {
		t.Fatal("tool errors are not user fixable")
	}
	if UserFixable(errors.New("plain")) {
		t.Fatal("untagged errors are not user fixable")
	}
}
