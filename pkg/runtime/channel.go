package runtime

import (
	"time"

	"domogateway/pkg/runtime/constant"
)

// ChannelValue is the last published value of a channel. Value holds an int
// for discrete channels and a float64 for continuous ones.
type ChannelValue struct {
	ChannelId string      `json:"channelId"`
	Value     interface{} `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// Channel describes an externally visible value of a device.
type Channel struct {
	Id         string              `json:"id"`
	Kind       constant.ValueKind  `json:"kind"`
	AccessMode constant.AccessMode `json:"accessMode"`
	Min        int                 `json:"min,omitempty"`
	Max        int                 `json:"max,omitempty"`
	Threshold  float64             `json:"threshold,omitempty"`
	Precision  int                 `json:"precision,omitempty"`
}

// PublishFunc receives a value the cache decided to publish.
type PublishFunc func(value ChannelValue)
