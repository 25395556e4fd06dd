package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModuleID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    ModuleID
		wantErr bool
	}{
		{in: "strategic", want: ModuleStrategic},
		{in: "Subsurface", want: ModuleSubsurface},
		{in: " PRODUCTION ", want: ModuleProduction},
		{in: "safety", want: ModuleSafety},
		{in: "Strategic Dashboard", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseModuleID(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownModule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModuleID_Closed(t *testing.T) {
	t.Parallel()

	for _, id := range Modules() {
		assert.True(t, id.Valid())
		assert.NotEmpty(t, id.Title())
		assert.Contains(t, handlers, id, "every module needs a handler")
	}
	assert.Len(t, handlers, len(Modules()))

	assert.False(t, ModuleID(0).Valid())
	assert.Equal(t, "ModuleID(9)", ModuleID(9).String())
}

func TestModuleID_Text(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]ModuleID{"m": ModuleProduction})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":"production"}`, string(data))

	var out struct {
		M ModuleID `json:"m"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"m":"safety"}`), &out))
	assert.Equal(t, ModuleSafety, out.M)

	require.Error(t, json.Unmarshal([]byte(`{"m":"finance"}`), &out))

	_, err = ModuleID(42).MarshalText()
	require.ErrorIs(t, err, ErrUnknownModule)
}
