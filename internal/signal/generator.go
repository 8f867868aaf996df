package signal

import (
	"math/rand/v2"
	"time"
)

// Default ranges for generated tube parameters.
const (
	MinKV           = 80.0
	MaxKV           = 120.0
	MinMA           = 100.0
	MaxMA           = 400.0
	MinExposureTime = 50.0
	MaxExposureTime = 200.0
)

// Overrides carries caller-supplied field values that replace the generated
// defaults verbatim. The generator performs no validation; an override with
// an out-of-range value is passed through as-is.
type Overrides struct {
	Time           *time.Time
	DataLength     *int64
	DataVolume     *float64
	KV             *float64
	MA             *float64
	ExposureTime   *float64
	ProjectionType *string
}

// Generate produces a synthetic reading for deviceID. Unset fields fall back
// to uniformly random defaults; DataLength and DataVolume stay unset so the
// ingestion side derives them. Not deterministic absent overrides.
func Generate(deviceID string, ov *Overrides) Signal {
	sig := Signal{
		DeviceID:       deviceID,
		Time:           time.Now().UTC(),
		KV:             ptr(uniform(MinKV, MaxKV)),
		MA:             ptr(uniform(MinMA, MaxMA)),
		ExposureTime:   ptr(uniform(MinExposureTime, MaxExposureTime)),
		ProjectionType: ptr(randomProjection()),
	}

	if ov == nil {
		return sig
	}

	if ov.Time != nil {
		sig.Time = *ov.Time
	}
	if ov.DataLength != nil {
		sig.DataLength = ov.DataLength
	}
	if ov.DataVolume != nil {
		sig.DataVolume = ov.DataVolume
	}
	if ov.KV != nil {
		sig.KV = ov.KV
	}
	if ov.MA != nil {
		sig.MA = ov.MA
	}
	if ov.ExposureTime != nil {
		sig.ExposureTime = ov.ExposureTime
	}
	if ov.ProjectionType != nil {
		sig.ProjectionType = ov.ProjectionType
	}

	return sig
}

func uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

func randomProjection() string {
	if rand.IntN(2) == 0 {
		return ProjectionAP
	}
	return ProjectionLateral
}

func ptr[T any](v T) *T {
	return &v
}
