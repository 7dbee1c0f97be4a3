package activity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		notes   string
		wantErr bool
	}{
		{name: "text", notes: "pushed to main"},
		{name: "empty", notes: "", wantErr: true},
		{name: "whitespace only", notes: " \n\t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Record{Notes: tt.notes}).Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "notes", verr.Field)
			assert.Equal(t, "notes can't be blank", err.Error())
		})
	}
}
