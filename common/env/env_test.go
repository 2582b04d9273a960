package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Environment
		wantErr bool
	}{
		{name: "local", raw: "local", want: EnvironmentLocal},
		{name: "mixed case and padding", raw: " Production ", want: EnvironmentProduction},
		{name: "docker", raw: "local-docker", want: EnvironmentLocalDocker},
		{name: "empty", raw: "", wantErr: true},
		{name: "unknown", raw: "qa", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), ApplicationEnvKey)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentOrDefault(t *testing.T) {
	t.Setenv(ApplicationEnvKey, "staging")
	require.Equal(t, EnvironmentStaging, CurrentOrDefault(EnvironmentLocal))

	t.Setenv(ApplicationEnvKey, "nope")
	require.Equal(t, EnvironmentLocal, CurrentOrDefault(EnvironmentLocal))
	require.True(t, CurrentOrDefault(EnvironmentLocal).IsLocal())
}
