package log

import "fmt"

type Level int

const LevelTrace Level = -8
const LevelDebug Level = -4
const LevelInfo Level = 0
const LevelWarn Level = 4
const LevelError Level = 8
const LevelFatal Level = 12

// LevelOff and LevelAll bracket the scale so the control protocol's
// "set/level/off" and "set/level/all" commands (spec §4.6) can be expressed
// as ordinary Level comparisons.
const LevelOff Level = 16
const LevelAll Level = -12

// ParseControlLevel parses the lowercase level names accepted by the
// in-band control protocol (off|notice|info|debug|error|all, spec §4.6),
// where "notice" maps onto Info since the scale has no separate Notice tier.
func ParseControlLevel(s string) (Level, error) {
	switch s {
	case "off":
		return LevelOff, nil
	case "notice":
		return LevelInfo, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "error":
		return LevelError, nil
	case "all":
		return LevelAll, nil
	}
	return LevelInfo, fmt.Errorf("invalid control log level: %s", s)
}

// Parses a string representation of a log level (TRACE, DEBUG, INFO, WARN, ERROR, FATAL) into a Level value, returning an error for invalid inputs.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

// Returns the human-readable string representation (e.g., "DEBUG", "INFO") of a logging level, or "UNKNOWN" for invalid values.
func (level Level) String() string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
