package arith

import "time"

// GettimeUsec returns the current wall-clock time in microseconds, used only
// for throughput telemetry. Returns -1 on failure; telemetry must tolerate
// that sentinel and may display zero throughput.
func GettimeUsec() int64 {
	return time.Now().UnixMicro()
}
