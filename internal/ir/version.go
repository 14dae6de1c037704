package ir

// Version constants for the quad encoding and the tool.
const (
	// EncodingVersion identifies the object-to-quad layout (CVT link direction,
	// lexical forms). Stored databases record it.
	EncodingVersion = "1"

	// ToolVersion is the perstore release.
	ToolVersion = "0.1.0"
)
