package recorder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name   string
		action RecordedAction
		want   string
	}{
		{
			name:   "password input type",
			action: RecordedAction{Type: ActionInput, InputType: "password", Value: "hunter2"},
			want:   MaskedPassword,
		},
		{
			name:   "field name with pwd fragment",
			action: RecordedAction{Type: ActionInput, FieldName: "user_pwd", Value: "hunter2"},
			want:   MaskedPassword,
		},
		{
			name:   "field name with token fragment",
			action: RecordedAction{Type: ActionInput, FieldName: "csrfToken", Value: "abc123"},
			want:   MaskedPassword,
		},
		{
			name:   "plain text field untouched",
			action: RecordedAction{Type: ActionInput, FieldName: "username", Value: "alice"},
			want:   "alice",
		},
		{
			name:   "already masked stays masked",
			action: RecordedAction{Type: ActionInput, InputType: "password", Value: MaskedPassword},
			want:   MaskedPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Mask(&tt.action)
			assert.Equal(t, tt.want, tt.action.Value)
		})
	}
}

func TestMaskSubmitFields(t *testing.T) {
	action := RecordedAction{
		Type: ActionSubmit,
		Fields: map[string]string{
			"email":    "alice@example.com",
			"password": "hunter2",
			"otpToken": "991122",
		},
	}
	Mask(&action)

	assert.Equal(t, "alice@example.com", action.Fields["email"])
	assert.Equal(t, MaskedValue, action.Fields["password"])
	assert.Equal(t, MaskedValue, action.Fields["otpToken"])

	// A second pass must change nothing.
	Mask(&action)
	assert.Equal(t, MaskedValue, action.Fields["password"])
}

func TestLogCapBoundary(t *testing.T) {
	log := NewLog(1000, 500)

	for i := 0; i < 1000; i++ {
		log.Append(RecordedAction{Type: ActionClick, Timestamp: int64(i)})
	}
	assert.Equal(t, 1000, log.Len(), "a log at exactly cap is untouched")
	assert.Equal(t, int64(0), log.Snapshot()[0].Timestamp)

	log.Append(RecordedAction{Type: ActionClick, Timestamp: 1000})
	snapshot := log.Snapshot()
	require.Len(t, snapshot, 500)
	assert.Equal(t, int64(501), snapshot[0].Timestamp, "oldest half evicted")
	assert.Equal(t, int64(1000), snapshot[len(snapshot)-1].Timestamp, "newest action kept")
}

func TestLogAppendMasks(t *testing.T) {
	log := NewLog(10, 5)
	log.Append(RecordedAction{Type: ActionInput, InputType: "password", Value: "hunter2"})

	snapshot := log.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, MaskedPassword, snapshot[0].Value)
}

func TestLogJSONRoundTrip(t *testing.T) {
	log := NewLog(10, 5)
	log.Append(RecordedAction{
		Type:      ActionInput,
		Timestamp: 42,
		Selector:  "#login-pw",
		InputType: "password",
		Value:     "hunter2",
		URL:       "https://tickets.example.com/login",
	})

	data, err := json.Marshal(log.Snapshot())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")

	var decoded []RecordedAction
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, MaskedPassword, decoded[0].Value)
	assert.Equal(t, int64(42), decoded[0].Timestamp)
}

func TestLogClear(t *testing.T) {
	log := NewLog(10, 5)
	log.Append(RecordedAction{Type: ActionClick})
	log.Clear()
	assert.Zero(t, log.Len())
}
