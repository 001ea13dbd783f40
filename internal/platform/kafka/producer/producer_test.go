package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRecord(t *testing.T) {
	r := toRecord(Message{
		Topic:   "case-events",
		Key:     []byte("k"),
		Value:   []byte(`{"a":1}`),
		Headers: map[string]string{"event_type": "CASE_CREATED"},
	})

	assert.Equal(t, "case-events", r.Topic)
	assert.Equal(t, []byte("k"), r.Key)
	assert.Equal(t, []byte(`{"a":1}`), r.Value)
	assert.Len(t, r.Headers, 1)
	assert.Equal(t, "event_type", r.Headers[0].Key)
	assert.Equal(t, []byte("CASE_CREATED"), r.Headers[0].Value)
}
