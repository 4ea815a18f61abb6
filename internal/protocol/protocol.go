// Package protocol defines the wire vocabulary shared by the hudson client,
// the fake server used in tests, and the CLI: API paths, headers, job status
// colors, and the control-port shutdown signal.
package protocol

import "strings"

// HTTP API paths, relative to the server root.
const (
	PathAPI        = "/api/json"
	PathCreateItem = "/createItem"
	PathJob        = "/job/"
	SuffixDelete   = "doDelete/api/json"
	SuffixConfig   = "config.xml"
	SuffixBuild    = "build"
)

// Response headers.
const (
	HeaderError   = "X-Error"
	HeaderHudson  = "X-Hudson"
	HeaderJenkins = "X-Jenkins"
)

// ContentTypeXML is the content type of a job config.xml upload.
const ContentTypeXML = "application/xml"

// ShutdownSignal is written to the control port to stop the server.
const ShutdownSignal = "0"

// DefaultNodeDescription is what a stock server reports for its master node.
const DefaultNodeDescription = "the master Hudson node"

// Color is the status color the server reports for a job.
type Color string

const (
	ColorBlue     Color = "blue"
	ColorRed      Color = "red"
	ColorYellow   Color = "yellow"
	ColorGrey     Color = "grey"
	ColorDisabled Color = "disabled"
	ColorAborted  Color = "aborted"
	ColorNotBuilt Color = "notbuilt"
)

func (c Color) String() string { return string(c) }

// Base strips the "_anime" suffix the server adds while a build is running.
func (c Color) Base() Color {
	return Color(strings.TrimSuffix(string(c), "_anime"))
}

// Building reports whether a build is in progress.
func (c Color) Building() bool {
	return strings.HasSuffix(string(c), "_anime")
}

// Status returns a human-readable build status for the color.
func (c Color) Status() string {
	var s string
	switch c.Base() {
	case ColorBlue:
		s = "success"
	case ColorRed:
		s = "failed"
	case ColorYellow:
		s = "unstable"
	case ColorDisabled:
		s = "disabled"
	case ColorAborted:
		s = "aborted"
	case ColorGrey, ColorNotBuilt:
		s = "not built"
	default:
		s = "unknown"
	}
	if c.Building() {
		s += ", building"
	}
	return s
}
