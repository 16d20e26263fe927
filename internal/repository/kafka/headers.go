package kafka

import (
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
)

// headers adapts message headers to the otel propagation carrier. Set
// replaces an existing key in place.
type headers struct{ hs *[]kafka.Header }

var _ propagation.TextMapCarrier = headers{}

func (h headers) Get(key string) string {
	for _, x := range *h.hs {
		if x.Key == key {
			return string(x.Value)
		}
	}
	return ""
}

func (h headers) Set(key, value string) {
	for i := range *h.hs {
		if (*h.hs)[i].Key == key {
			(*h.hs)[i].Value = []byte(value)
			return
		}
	}
	*h.hs = append(*h.hs, kafka.Header{Key: key, Value: []byte(value)})
}

func (h headers) Keys() []string {
	ks := make([]string, len(*h.hs))
	for i, x := range *h.hs {
		ks[i] = x.Key
	}
	return ks
}
