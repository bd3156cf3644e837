package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake_UnmarshalJSON(t *testing.T) {
	var ids []Snowflake
	require.NoError(t, json.Unmarshal([]byte(`["123", 456, null]`), &ids))
	assert.Equal(t, []Snowflake{"123", "456", ""}, ids)
}

func TestMessageType_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want MessageType
	}{
		{`"Reply"`, "Reply"},
		{`"19"`, "19"},
		{`0`, "Default"},
		{`19`, "Reply"},
		{`999`, "999"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(`{"id":"1","type":`+tt.in+`}`), &msg), tt.in)
		assert.Equal(t, tt.want, msg.Type, tt.in)
	}
}

func TestMessageType_RejectsObjects(t *testing.T) {
	var msg Message
	assert.Error(t, json.Unmarshal([]byte(`{"id":"1","type":{"name":"Reply"}}`), &msg))
}
