package mqtt

import (
	"errors"
	"testing"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

func TestFilterControlHandler(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bonsai.Filter
		wantErr bool
	}{
		{
			name:    "level only",
			payload: `{"minimum_level":"warning"}`,
			want:    bonsai.Filter{MinimumLevel: bonsai.Warning},
		},
		{
			name:    "focus only",
			payload: `{"debug_focus":true}`,
			want:    bonsai.Filter{MinimumLevel: bonsai.Verbose, DebugFocus: true},
		},
		{
			name:    "both",
			payload: `{"minimum_level":"error","debug_focus":false}`,
			want:    bonsai.Filter{MinimumLevel: bonsai.Error},
		},
		{
			name:    "unknown level",
			payload: `{"minimum_level":"loud"}`,
			want:    bonsai.Filter{MinimumLevel: bonsai.Verbose},
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `warning`,
			want:    bonsai.Filter{MinimumLevel: bonsai.Verbose},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := bonsai.New()
			handler := FilterControlHandler(logger)

			err := handler(Topics{}.FilterControl(), []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("handler error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidControl) {
				t.Errorf("error = %v, want ErrInvalidControl", err)
			}
			if got := logger.Filter(); got != tt.want {
				t.Errorf("Filter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
