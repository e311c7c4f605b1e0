package ir

// Version constants for the record format and engine.
const (
	// RecordVersion is the action record schema version.
	RecordVersion = "1"

	// EngineVersion is the engine version.
	EngineVersion = "0.3.0"
)
