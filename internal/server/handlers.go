package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/ironsheep/lsd-mcp/internal/detection"
	"github.com/ironsheep/lsd-mcp/internal/imaging"
	"github.com/ironsheep/lsd-mcp/internal/pipeline"
	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall runs a tool and wraps its result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000,
// results that cannot be encoded one with code -32603.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Msg("tool done")

	return s.toolResponse(req.ID, params.Name, result)
}

// toolResponse wraps a tool result as pretty-printed JSON text. A result that
// cannot be encoded is reported as an internal error.
func (s *Server) toolResponse(id interface{}, tool string, result interface{}) *MCPResponse {
	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Str("tool", tool).Msg("failed to encode tool result")
		return s.errorResponse(id, -32603, "Internal error", errors.Wrap(err, "failed to encode tool result").Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}
}

// executeTool dispatches a tool call to its handler.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_gradient":
		return s.handleImageGradient(args)
	case "image_detect_line_segments":
		return s.handleDetectLineSegments(ctx, args)
	case "image_segment_overlay":
		return s.handleSegmentOverlay(ctx, args)
	case "image_status_map":
		return s.handleStatusMap(ctx, args)
	default:
		return nil, errors.Errorf("unknown tool: %s", name)
	}
}

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errors.New("missing arguments")
	}
	return errors.Wrap(json.Unmarshal(args, v), "invalid arguments")
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Detection Handlers ===

// detectArgs are shared by every tool that runs the pipeline. Gradient,
// Detector and Tiles are applied over the server defaults, so a partial
// object only changes the fields it names.
type detectArgs struct {
	Path     string          `json:"path"`
	Region   string          `json:"region"`
	ROI      *imaging.ROI    `json:"roi"`
	Gradient json.RawMessage `json:"gradient"`
	Detector json.RawMessage `json:"detector"`
	Tiles    json.RawMessage `json:"tiles"`
}

// options resolves a against the server defaults and the image bounds.
func (s *Server) options(a detectArgs) (pipeline.Options, error) {
	opts := s.defaults
	for _, part := range []struct {
		name string
		raw  json.RawMessage
		dst  interface{}
	}{
		{"gradient", a.Gradient, &opts.Gradient},
		{"detector", a.Detector, &opts.Detector},
		{"tiles", a.Tiles, &opts.Tiles},
	} {
		if len(part.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return opts, errors.Wrapf(err, "invalid %s options", part.name)
		}
	}

	if a.Region != "" {
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return opts, err
		}
		roi, err := imaging.NamedRegion(img.Bounds(), a.Region)
		if err != nil {
			return opts, err
		}
		opts.ROI = roi
	}
	if a.ROI != nil {
		opts.ROI = *a.ROI
	}
	return opts, nil
}

// detect runs the pipeline for a tool call.
func (s *Server) detect(ctx context.Context, a detectArgs) (*pipeline.Report, error) {
	opts, err := s.options(a)
	if err != nil {
		return nil, err
	}
	return s.pipeline.RunFile(ctx, a.Path, opts)
}

type detectLineSegmentsArgs struct {
	detectArgs
	// Format is "json" (default) or "geojson".
	Format string `json:"format"`
}

func (s *Server) handleDetectLineSegments(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectLineSegmentsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	rep, err := s.detect(ctx, a.detectArgs)
	if err != nil {
		return nil, err
	}
	switch a.Format {
	case "", "json":
		return rep, nil
	case "geojson":
		return rep.FeatureCollection(), nil
	default:
		return nil, errors.Errorf("unknown format: %s", a.Format)
	}
}

type segmentOverlayArgs struct {
	detectArgs
	Overlay json.RawMessage `json:"overlay"`
}

// overlayResult is an overlay picture with the segments drawn on it.
type overlayResult struct {
	*imaging.PictureResult
	Segments []detection.Segment `json:"segments"`
}

func (s *Server) handleSegmentOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a segmentOverlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	style := imaging.DefaultOverlayOptions()
	if len(a.Overlay) > 0 {
		if err := json.Unmarshal(a.Overlay, &style); err != nil {
			return nil, errors.Wrap(err, "invalid overlay options")
		}
	}

	rep, err := s.detect(ctx, a.detectArgs)
	if err != nil {
		return nil, err
	}
	over, err := rep.Overlay(style)
	if err != nil {
		return nil, err
	}
	pic, err := imaging.EncodePNG(over)
	if err != nil {
		return nil, err
	}
	return &overlayResult{PictureResult: pic, Segments: rep.Segments}, nil
}

// statusMapResult is the final pixel status map of a detection. Its pixels
// are in gradient field coordinates.
type statusMapResult struct {
	*imaging.PictureResult
	Used           int `json:"used"`
	NotUsed        int `json:"not_used"`
	NotInitialized int `json:"not_initialized"`
	Segments       int `json:"segments"`
}

func (s *Server) handleStatusMap(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	rep, err := s.detect(ctx, a)
	if err != nil {
		return nil, err
	}
	pic, err := imaging.EncodePNG(rep.Status.Gray())
	if err != nil {
		return nil, err
	}
	return &statusMapResult{
		PictureResult:  pic,
		Used:           rep.Status.Count(detection.Used),
		NotUsed:        rep.Status.Count(detection.NotUsed),
		NotInitialized: rep.Status.Count(detection.NotInitialized),
		Segments:       rep.Count(),
	}, nil
}

type imageGradientArgs struct {
	Path     string          `json:"path"`
	Region   string          `json:"region"`
	ROI      *imaging.ROI    `json:"roi"`
	Gradient json.RawMessage `json:"gradient"`
	// View is "magnitude" (default) or "orientation".
	View string `json:"view"`
}

// gradientResult is a rendering of the gradient field of an image region.
type gradientResult struct {
	*imaging.PictureResult
	View         string      `json:"view"`
	Region       imaging.ROI `json:"region"`
	Scale        float64     `json:"scale"`
	MaxMagnitude float64     `json:"max_magnitude"`
}

func (s *Server) handleImageGradient(args json.RawMessage) (interface{}, error) {
	var a imageGradientArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(detectArgs{Path: a.Path, Region: a.Region, ROI: a.ROI, Gradient: a.Gradient})
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	cropped, offset, err := imaging.Crop(img, opts.ROI)
	if err != nil {
		return nil, err
	}
	field, err := imaging.Gradient(cropped, opts.Gradient)
	if err != nil {
		return nil, err
	}

	res := &gradientResult{
		View:         a.View,
		Scale:        opts.Gradient.Scale,
		MaxMagnitude: raster.Max(field.Magnitude),
		Region: imaging.ROI{
			X1: offset.X, Y1: offset.Y,
			X2: offset.X + cropped.Bounds().Dx(), Y2: offset.Y + cropped.Bounds().Dy(),
		},
	}
	switch a.View {
	case "", "magnitude":
		res.View = "magnitude"
		res.PictureResult, err = imaging.EncodePNG(imaging.MagnitudePicture(field.Magnitude))
	case "orientation":
		res.PictureResult, err = imaging.EncodePNG(imaging.OrientationPicture(field.Magnitude, field.Orientation))
	default:
		return nil, errors.Errorf("unknown view: %s", a.View)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
