// Package server implements the MCP (Model Context Protocol) server exposing
// the line segment detector.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Line segment detection:
//   - image_gradient: Render the gradient magnitude or orientation
//   - image_detect_line_segments: Detect segments, as JSON or GeoJSON
//   - image_segment_overlay: Draw detected segments over the image
//   - image_status_map: Render the final pixel status map
//
// Detection tools accept a region of interest, either named ("top-left",
// "center", ...) or as pixel bounds, and partial gradient, detector and
// tiling options merged over the server defaults.
//
// # Image Caching
//
// Images are cached by path for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. Logs go to the logger given to
// New, never to stdout.
package server
