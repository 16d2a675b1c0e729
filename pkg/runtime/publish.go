package runtime

import "time"

const PublishTimeLayout = "2006-01-02T15:04:05.000Z"

type PublishData struct {
	Payload Payload `json:"payload"`
}

type Payload struct {
	Data []TimeSeriesData `json:"data"`
}

type TimeSeriesData struct {
	Timestamp string      `json:"timestamp"`
	Values    []PointData `json:"values"`
}

type PointData struct {
	DataPointId string      `json:"dataPointId"`
	Value       interface{} `json:"value"`
}

// NewPublishData wraps channel values published at the same instant.
func NewPublishData(ts time.Time, values ...ChannelValue) PublishData {
	pds := make([]PointData, 0, len(values))
	for _, v := range values {
		pds = append(pds, PointData{DataPointId: v.ChannelId, Value: v.Value})
	}
	return PublishData{Payload: Payload{Data: []TimeSeriesData{{
		Timestamp: ts.UTC().Format(PublishTimeLayout),
		Values:    pds,
	}}}}
}
