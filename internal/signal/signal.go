package signal

import "time"

// Projection tags a device can report.
const (
	ProjectionAP      = "AP"
	ProjectionLateral = "Lateral"
)

// Signal is one device reading: the unit of transfer on the queue and of
// storage in Postgres. DeviceID and Time are always present and well-formed
// before a record reaches storage; DataLength and DataVolume are derived at
// ingestion when a device omits them. The remaining tube parameters are
// optional and pointer-typed so that "absent" survives a JSON round trip.
type Signal struct {
	SignalID       string    `json:"signalId,omitempty" db:"signal_id"`
	DeviceID       string    `json:"deviceId" db:"device_id"`
	Time           time.Time `json:"time" db:"recorded_at"`
	DataLength     *int64    `json:"dataLength,omitempty" db:"data_length"`
	DataVolume     *float64  `json:"dataVolume,omitempty" db:"data_volume"`
	KV             *float64  `json:"kV,omitempty" db:"kv"`
	MA             *float64  `json:"mA,omitempty" db:"ma"`
	ExposureTime   *float64  `json:"exposureTime,omitempty" db:"exposure_time"`
	ProjectionType *string   `json:"projectionType,omitempty" db:"projection_type"`
	CreatedAt      time.Time `json:"createdAt,omitzero" db:"created_at"`
}
