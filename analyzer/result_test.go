package analyzer

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlabanalyzer/models"
)

func TestFailurePayloadIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		res  any
		want string
	}{
		{
			name: "list payload",
			res:  Failure[[]models.Document](MsgInvalidToken),
			want: `{"ok":false,"error":"Invalid token","payload":[]}`,
		},
		{
			name: "grouped payload",
			res:  Failure[map[string][]models.Document](MsgInvalidProjectID),
			want: `{"ok":false,"error":"Invalid project ID","payload":{}}`,
		},
		{
			name: "document payload",
			res:  Failure[models.Document](MsgInvalidProjectID),
			want: `{"ok":false,"error":"Invalid project ID","payload":{}}`,
		},
		{
			name: "struct payload",
			res:  Failure[struct{}](MsgInvalidToken),
			want: `{"ok":false,"error":"Invalid token","payload":{}}`,
		},
		{
			name: "nil list on success",
			res:  success[[]string](nil),
			want: `{"ok":true,"error":"","payload":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(tt.res)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestFailurePayloadIsIterable(t *testing.T) {
	res := Failure[[]models.Document](MsgInvalidToken)
	assert.NotNil(t, res.Payload)
	assert.Empty(t, res.Payload)

	grouped := Failure[map[string][]models.Document](MsgInvalidToken)
	assert.NotNil(t, grouped.Payload)
	assert.Empty(t, grouped.Payload)
}
