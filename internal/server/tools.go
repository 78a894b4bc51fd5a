package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var regionNames = []string{
	"full", "top-left", "top-right", "bottom-left", "bottom-right",
	"top-half", "bottom-half", "left-half", "right-half", "center",
}

func roiProperties() map[string]interface{} {
	return map[string]interface{}{
		"region": map[string]interface{}{
			"type":        "string",
			"enum":        regionNames,
			"description": "Named region to analyse. Ignored when roi is given.",
		},
		"roi": map[string]interface{}{
			"type":        "object",
			"description": "Region of interest in pixels; (x1,y1) inclusive, (x2,y2) exclusive",
			"properties": map[string]interface{}{
				"x1": map[string]interface{}{"type": "integer"},
				"y1": map[string]interface{}{"type": "integer"},
				"x2": map[string]interface{}{"type": "integer"},
				"y2": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"x1", "y1", "x2", "y2"},
		},
	}
}

var gradientProperty = map[string]interface{}{
	"type":        "object",
	"description": "Gradient options; omitted fields keep their defaults",
	"properties": map[string]interface{}{
		"scale": map[string]interface{}{
			"type":        "number",
			"description": "Down-sampling factor in (0, 1]. Default 0.8",
		},
		"sigma_scale": map[string]interface{}{
			"type":        "number",
			"description": "Gaussian sigma is sigma_scale/scale. Default 0.6",
		},
		"noise_floor": map[string]interface{}{
			"type":        "number",
			"description": "Gradient magnitudes at or below this many grey levels are ignored. Default 2",
		},
	},
}

var detectorProperty = map[string]interface{}{
	"type":        "object",
	"description": "Detector options; omitted fields keep their defaults",
	"properties": map[string]interface{}{
		"min_gradient": map[string]interface{}{
			"type":        "number",
			"description": "Minimum gradient magnitude of a seed pixel. Default 2/sin(pi/8)",
		},
		"angle_tolerance": map[string]interface{}{
			"type":        "number",
			"description": "Region growing angle tolerance in radians. Default pi/8",
		},
		"epsilon": map[string]interface{}{
			"type":        "number",
			"description": "Accept a segment when its NFA is at most epsilon. Default 1",
		},
		"min_region_size": map[string]interface{}{
			"type":        "integer",
			"description": "Minimum region size in pixels; 0 derives it from the image size",
		},
		"levels": map[string]interface{}{
			"type":        "integer",
			"description": "Number of gradient bins used to order seeds. Default 1024",
		},
		"refinements_per_strategy": map[string]interface{}{
			"type":        "integer",
			"description": "Iterations of each of the three refinement strategies. Default 5",
		},
		"merge_distance": map[string]interface{}{
			"type":        "number",
			"description": "Report the two edges of a thin line as one segment when their center lines are at most this many gradient pixels apart; 0 disables. Default 6",
		},
		"width_percentile": map[string]interface{}{
			"type":        "number",
			"description": "0 fits rectangle width to the farthest pixel; otherwise to this percentile of distances",
		},
	},
}

var tilesProperty = map[string]interface{}{
	"type":        "object",
	"description": "Tiled detection; tiles are detected independently and in parallel",
	"properties": map[string]interface{}{
		"size": map[string]interface{}{
			"type":        "integer",
			"description": "Tile edge in gradient pixels; 0 disables tiling",
		},
		"workers": map[string]interface{}{
			"type":        "integer",
			"description": "Tiles processed at once; 0 uses all CPUs",
		},
	},
}

// detectSchema builds the input schema of a tool that runs a detection,
// adding extra properties.
func detectSchema(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path":     pathProperty,
		"gradient": gradientProperty,
		"detector": detectorProperty,
		"tiles":    tilesProperty,
	}
	for k, v := range roiProperties() {
		props[k] = v
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   []string{"path"},
	}
}

// GetToolDefinitions returns all available tools, in the order tools/list
// reports them. Every tool takes a "path"; the detection tools also accept
// "region", "roi", "gradient", "detector" and "tiles".
func GetToolDefinitions() []Tool {
	gradientProps := map[string]interface{}{
		"path":     pathProperty,
		"gradient": gradientProperty,
		"view": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"magnitude", "orientation"},
			"description": "Render the gradient magnitude, or the level-line orientation as hue",
			"default":     "magnitude",
		},
	}
	for k, v := range roiProperties() {
		gradientProps[k] = v
	}

	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image stays cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_gradient",
			Description: "Render the gradient field the line segment detector works on, as a base64 PNG at the gradient resolution.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": gradientProps,
				"required":   []string{"path"},
			},
		},
		{
			Name: "image_detect_line_segments",
			Description: "Detect straight line segments with an a-contrario detector. Each segment has end points in image " +
				"pixels, width, length, angle and NFA (expected number of false alarms; lower is more significant).",
			InputSchema: detectSchema(map[string]interface{}{
				"format": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"json", "geojson"},
					"description": "Result format. geojson returns a FeatureCollection of LineStrings",
					"default":     "json",
				},
			}),
		},
		{
			Name:        "image_segment_overlay",
			Description: "Detect line segments and draw them over the image. Returns a base64 PNG and the segments.",
			InputSchema: detectSchema(map[string]interface{}{
				"overlay": map[string]interface{}{
					"type":        "object",
					"description": "Drawing options",
					"properties": map[string]interface{}{
						"color": map[string]interface{}{
							"type":        "string",
							"description": "Hex stroke colour. Default #ff0000",
						},
						"opacity": map[string]interface{}{
							"type":        "number",
							"description": "Stroke opacity in [0, 1]. Default 0.9",
						},
						"line_width": map[string]interface{}{
							"type":        "number",
							"description": "Stroke width in pixels; 0 uses each segment's width",
						},
						"labels": map[string]interface{}{
							"type":        "boolean",
							"description": "Number segments in detection order",
						},
						"grid_spacing": map[string]interface{}{
							"type":        "integer",
							"description": "Draw a coordinate grid every N pixels",
						},
					},
				},
			}),
		},
		{
			Name:        "image_status_map",
			Description: "Detect line segments and return the final pixel status map: white pixels belong to a segment's region, grey pixels had no usable gradient.",
			InputSchema: detectSchema(nil),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
