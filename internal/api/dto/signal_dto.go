package dto

import "time"

type GenerateSignalsRequest struct {
	DeviceID  string           `json:"device_id" binding:"required"`
	Count     int              `json:"count" binding:"gte=0"`
	Overrides *SignalOverrides `json:"overrides"`
}

// SignalOverrides mirrors the generator's override fields; absent fields
// keep their randomized defaults.
type SignalOverrides struct {
	Time           *time.Time `json:"time"`
	DataLength     *int64     `json:"dataLength"`
	DataVolume     *float64   `json:"dataVolume"`
	KV             *float64   `json:"kV"`
	MA             *float64   `json:"mA"`
	ExposureTime   *float64   `json:"exposureTime"`
	ProjectionType *string    `json:"projectionType"`
}

type GenerateSignalsResponse struct {
	DeviceID  string `json:"device_id"`
	Published int    `json:"published"`
}

type ListSignalsRequest struct {
	DeviceID       string `form:"device_id"`
	ProjectionType string `form:"projection_type"`
	PageSize       int    `form:"page_size"`
	Cursor         string `form:"cursor"`
}

type ListSignalsResponse struct {
	Signals    []SignalDTO `json:"signals"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type SignalDTO struct {
	SignalID       string   `json:"signal_id"`
	DeviceID       string   `json:"device_id"`
	Time           string   `json:"time"`
	DataLength     *int64   `json:"data_length"`
	DataVolume     *float64 `json:"data_volume"`
	KV             *float64 `json:"kv,omitempty"`
	MA             *float64 `json:"ma,omitempty"`
	ExposureTime   *float64 `json:"exposure_time,omitempty"`
	ProjectionType *string  `json:"projection_type,omitempty"`
	CreatedAt      string   `json:"created_at"`
}
