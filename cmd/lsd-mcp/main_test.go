package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	dc := gg.NewContext(100, 80)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(4)
	dc.DrawLine(10, 15, 90, 65)
	dc.Stroke()

	path := filepath.Join(t.TempDir(), "line.png")
	require.NoError(t, gg.SavePNG(path, dc.Image()))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errw bytes.Buffer
	err := newApp(&out, &errw).Run(append([]string{"lsd-mcp"}, args...))
	return out.String(), errw.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lsd-mcp dev")
	assert.Contains(t, out, "Git commit")
}

func TestDetect_JSON(t *testing.T) {
	out, logs, err := run(t, "--log-level", "debug", "detect", writeTestImage(t))
	require.NoError(t, err)

	var rep struct {
		Width    int              `json:"width"`
		Segments []map[string]any `json:"segments"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 100, rep.Width)
	assert.NotEmpty(t, rep.Segments)
	assert.Contains(t, logs, "segments detected")
}

func TestDetect_GeoJSONAndPictures(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "overlay.png")
	status := filepath.Join(dir, "status.png")

	out, _, err := run(t, "--log-json", "detect",
		"--format", "geojson",
		"--overlay", overlay,
		"--status", status,
		"--scale", "1",
		"--angle-tolerance", "22.5",
		writeTestImage(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"FeatureCollection"`)

	for file, width := range map[string]int{overlay: 100, status: 100} {
		f, err := os.Open(file)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, width, cfg.Width, file)
	}
}

func TestDetect_ROI(t *testing.T) {
	out, _, err := run(t, "detect", "--roi", "0,0,50,40", writeTestImage(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"x2": 50`)

	out, _, err = run(t, "detect", "--region", "bottom-right", writeTestImage(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"x1": 50`)
}

func TestDetect_Errors(t *testing.T) {
	img := writeTestImage(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no image", []string{"detect"}, "exactly one image"},
		{"bad format", []string{"detect", "--format", "svg", img}, "unknown format"},
		{"bad roi", []string{"detect", "--roi", "1,2", img}, "invalid --roi"},
		{"bad region", []string{"detect", "--region", "middle", img}, "unknown region"},
		{"bad config", []string{"detect", "--epsilon", "-1", "--levels", "0", img}, "invalid detector config"},
		{"bad log level", []string{"--log-level", "loud", "version"}, "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServe(t *testing.T) {
	var out, errw bytes.Buffer
	app := newApp(&out, &errw)
	app.Reader = strings.NewReader(`{"jsonrpc":"2.0","id":7,"method":"ping"}` + "\n")

	require.NoError(t, app.Run([]string{"lsd-mcp", "serve"}))
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"result":{}}`, strings.TrimSpace(out.String()))
	assert.Contains(t, errw.String(), "serving MCP")
}
