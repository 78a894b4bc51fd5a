package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStrokeImage saves a 120x90 white image crossed by two dark strokes.
func writeStrokeImage(t *testing.T) string {
	t.Helper()
	dc := gg.NewContext(120, 90)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(5)
	dc.DrawLine(10, 20, 110, 20)
	dc.DrawLine(60, 30, 60, 85)
	dc.Stroke()

	path := filepath.Join(t.TempDir(), "strokes.png")
	require.NoError(t, gg.SavePNG(path, dc.Image()))
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPError {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	require.NoError(t, err)

	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	require.NotNil(t, resp)
	if resp.Error != nil {
		return resp.Error
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	require.NoError(t, json.Unmarshal([]byte(content[0]["text"].(string)), out))
	return nil
}

func TestTool_ImageLoad(t *testing.T) {
	s := New()
	path := writeStrokeImage(t)

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}
	require.Nil(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}, &info))
	assert.Equal(t, 120, info.Width)
	assert.Equal(t, 90, info.Height)
	assert.Equal(t, "png", info.Format)

	var dims map[string]int
	require.Nil(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims))
	assert.Equal(t, map[string]int{"width": 120, "height": 90}, dims)
}

type segmentsResult struct {
	Width    int `json:"width"`
	Segments []struct {
		Start  [2]float64 `json:"start"`
		End    [2]float64 `json:"end"`
		Length float64    `json:"length"`
		NFA    float64    `json:"nfa"`
	} `json:"segments"`
	Stats struct {
		Accepted int `json:"accepted"`
		Merged   int `json:"merged"`
	} `json:"stats"`
	Region map[string]int `json:"region"`
}

func TestTool_DetectLineSegments(t *testing.T) {
	s := New()
	path := writeStrokeImage(t)

	var res segmentsResult
	require.Nil(t, callTool(t, s, "image_detect_line_segments", map[string]interface{}{"path": path}, &res))
	assert.Equal(t, 120, res.Width)
	require.NotEmpty(t, res.Segments)
	assert.Equal(t, len(res.Segments), res.Stats.Accepted-res.Stats.Merged)
	for _, seg := range res.Segments {
		assert.LessOrEqual(t, seg.NFA, 1.0)
	}
}

func TestTool_DetectLineSegments_RegionAndOptions(t *testing.T) {
	s := New()
	path := writeStrokeImage(t)

	var res segmentsResult
	require.Nil(t, callTool(t, s, "image_detect_line_segments", map[string]interface{}{
		"path":     path,
		"region":   "bottom-half",
		"gradient": map[string]interface{}{"scale": 1},
		"detector": map[string]interface{}{"epsilon": 0.5},
		"tiles":    map[string]interface{}{"size": 32},
	}, &res))
	assert.Equal(t, map[string]int{"x1": 0, "y1": 45, "x2": 120, "y2": 90}, res.Region)
	require.NotEmpty(t, res.Segments, "the vertical stroke crosses the bottom half")
	for _, seg := range res.Segments {
		assert.GreaterOrEqual(t, seg.Start[1], 44.0)
		assert.GreaterOrEqual(t, seg.End[1], 44.0)
	}

	// roi takes precedence over region.
	require.Nil(t, callTool(t, s, "image_detect_line_segments", map[string]interface{}{
		"path":   path,
		"region": "bottom-half",
		"roi":    map[string]interface{}{"x1": 0, "y1": 0, "x2": 120, "y2": 40},
	}, &res))
	assert.Equal(t, 40, res.Region["y2"])
}

func TestTool_DetectLineSegments_GeoJSON(t *testing.T) {
	s := New()
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.Nil(t, callTool(t, s, "image_detect_line_segments", map[string]interface{}{
		"path":   writeStrokeImage(t),
		"format": "geojson",
	}, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.NotEmpty(t, fc.Features)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Contains(t, fc.Features[0].Properties, "nfa")
}

func TestTool_Pictures(t *testing.T) {
	s := New()
	path := writeStrokeImage(t)

	var pic struct {
		Width          int    `json:"width"`
		Height         int    `json:"height"`
		ImageBase64    string `json:"image_base64"`
		MimeType       string `json:"mime_type"`
		View           string `json:"view"`
		Segments       []any  `json:"segments"`
		Used           int    `json:"used"`
		NotUsed        int    `json:"not_used"`
		NotInitialized int    `json:"not_initialized"`
	}

	require.Nil(t, callTool(t, s, "image_gradient", map[string]interface{}{"path": path}, &pic))
	assert.Equal(t, 96, pic.Width, "gradient pictures are at scale 0.8")
	assert.Equal(t, "magnitude", pic.View)
	assert.Equal(t, "image/png", pic.MimeType)
	assert.NotEmpty(t, pic.ImageBase64)

	require.Nil(t, callTool(t, s, "image_gradient", map[string]interface{}{"path": path, "view": "orientation"}, &pic))
	assert.Equal(t, "orientation", pic.View)

	require.Nil(t, callTool(t, s, "image_segment_overlay", map[string]interface{}{
		"path":    path,
		"overlay": map[string]interface{}{"color": "#00ff00", "labels": true},
	}, &pic))
	assert.Equal(t, 120, pic.Width)
	assert.NotEmpty(t, pic.Segments)

	require.Nil(t, callTool(t, s, "image_status_map", map[string]interface{}{"path": path}, &pic))
	assert.Equal(t, 96, pic.Width)
	assert.Positive(t, pic.Used)
	assert.Positive(t, pic.NotUsed, "flat background stays available")
	assert.Zero(t, pic.NotInitialized, "the gradient defines every orientation")
}

func TestTool_Errors(t *testing.T) {
	s := New()
	path := writeStrokeImage(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"unknown tool", "image_ocr_full", map[string]interface{}{"path": path}, "unknown tool"},
		{"missing file", "image_load", map[string]interface{}{"path": "/nonexistent.png"}, "failed to load image"},
		{"bad region", "image_detect_line_segments", map[string]interface{}{"path": path, "region": "middle"}, "unknown region"},
		{"bad detector", "image_status_map", map[string]interface{}{"path": path, "detector": map[string]interface{}{"levels": -1}}, "levels"},
		{"bad detector type", "image_status_map", map[string]interface{}{"path": path, "detector": "fast"}, "invalid detector options"},
		{"bad format", "image_detect_line_segments", map[string]interface{}{"path": path, "format": "svg"}, "unknown format"},
		{"bad view", "image_gradient", map[string]interface{}{"path": path, "view": "phase"}, "unknown view"},
		{"bad colour", "image_segment_overlay", map[string]interface{}{"path": path, "overlay": map[string]interface{}{"color": "red"}}, "invalid overlay color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]interface{}
			e := callTool(t, s, tt.tool, tt.args, &out)
			require.NotNil(t, e)
			assert.Equal(t, -32000, e.Code)
			assert.Contains(t, e.Data, tt.want)
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := New().handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestToolResponse_EncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	s := New(WithLogger(zerolog.New(&logs)))

	resp := s.toolResponse(3, "image_gradient", map[string]float64{"max_magnitude": math.NaN()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
	assert.Contains(t, resp.Error.Data, "failed to encode tool result")
	assert.Nil(t, resp.Result)
	assert.Contains(t, logs.String(), `"tool":"image_gradient"`)

	resp = s.toolResponse(4, "image_dimensions", map[string]int{"width": 2})
	require.Nil(t, resp.Error)
	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	assert.JSONEq(t, `{"width": 2}`, content[0]["text"].(string))
}
