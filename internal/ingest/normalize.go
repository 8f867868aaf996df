package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/signal-pipeline/internal/signal"
)

// VolumeLengthRatio relates a derived data volume to the derived length.
const VolumeLengthRatio = 1.5

// Epoch values at or above this are millisecond timestamps. Device firmware
// reports milliseconds; older gateways report seconds.
const epochMillisThreshold = 1e12

// Normalize turns an arbitrary decoded upload payload into a persistable
// signal record. deviceId and a usable timestamp are mandatory; length and
// volume are derived from the payload's encoded size when the device omits
// them; the remaining fields are kept only when they carry the expected
// primitive type and dropped otherwise.
func Normalize(payload map[string]any) (*signal.Signal, error) {
	deviceID, ok := payload["deviceId"].(string)
	if !ok || deviceID == "" {
		return nil, fmt.Errorf("%w: deviceId must be a non-empty string", signal.ErrInvalidPayload)
	}

	ts, err := normalizeTime(payload["time"])
	if err != nil {
		return nil, err
	}

	rec := &signal.Signal{
		DeviceID: deviceID,
		Time:     ts,
	}

	if v, ok := toFloat(payload["dataLength"]); ok {
		length := int64(v)
		rec.DataLength = &length
	} else {
		length := derivedLength(payload)
		rec.DataLength = &length
	}

	if v, ok := toFloat(payload["dataVolume"]); ok {
		rec.DataVolume = &v
	} else {
		volume := float64(*rec.DataLength) * VolumeLengthRatio
		rec.DataVolume = &volume
	}

	if v, ok := toFloat(payload["kV"]); ok {
		rec.KV = &v
	}
	if v, ok := toFloat(payload["mA"]); ok {
		rec.MA = &v
	}
	if v, ok := toFloat(payload["exposureTime"]); ok {
		rec.ExposureTime = &v
	}
	if v, ok := payload["projectionType"].(string); ok {
		rec.ProjectionType = &v
	}

	return rec, nil
}

// derivedLength approximates a reading's size as the byte length of the
// payload's canonical JSON encoding. Map marshaling sorts keys, so the same
// payload always derives the same value.
func derivedLength(payload map[string]any) int64 {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	return int64(len(encoded))
}

func normalizeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Now().UTC(), nil
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	default:
		if n, ok := toFloat(v); ok {
			return fromEpoch(n), nil
		}
		return time.Time{}, fmt.Errorf("%w: time has unsupported type %T", signal.ErrInvalidPayload, v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unparsable time %q", signal.ErrInvalidPayload, s)
}

func fromEpoch(n float64) time.Time {
	if n >= epochMillisThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
