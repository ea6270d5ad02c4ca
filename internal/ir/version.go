package ir

// Version constants for the annotation schema and tool.
const (
	// IRVersion is the semantic version of the persisted annotation schema.
	// Stores written with the same major version can be reloaded.
	IRVersion = "1.0.0"

	// ToolVersion is the firanno release.
	ToolVersion = "0.1.0"
)
