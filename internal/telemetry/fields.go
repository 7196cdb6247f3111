package telemetry

// #region keys
// Keys of the per-step key/value record handed to sinks.
const (
	FieldTime            = "time"
	FieldSwitchReal      = "switch_real"
	FieldSensorReading   = "sensor_reading"
	FieldSwitchEstimated = "switch_estimated"
	FieldUncertainty     = "uncertainty"
	FieldAnomaly         = "anomaly"
	FieldCorrupted       = "corrupted"
	FieldOverridden      = "overridden"
	FieldAction          = "action"
	FieldReason          = "reason"
	FieldEFEMaintain     = "efe_maintain"
	FieldEFEEpistemic    = "efe_epistemic"
	FieldEFEPragmatic    = "efe_pragmatic"
	FieldTrainVelocity   = "train_velocity"
)

// #endregion keys

// #region accessors
// Float reads a numeric field. Values decoded from protobuf or JSON arrive as
// float64; values built in-process may be int.
func Float(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int reads an integer field.
func Int(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool reads a boolean field.
func Bool(fields map[string]any, key string) bool {
	b, _ := fields[key].(bool)
	return b
}

// String reads a string field.
func String(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// #endregion accessors
