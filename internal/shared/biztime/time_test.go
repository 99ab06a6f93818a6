package biztime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMonthsClamped(t *testing.T) {
	require.NoError(t, Init("UTC"))

	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{
			name: "regular month",
			in:   time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
			n:    1,
			want: time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "end of month clamps to february",
			in:   time.Date(2025, 1, 31, 8, 30, 0, 0, time.UTC),
			n:    1,
			want: time.Date(2025, 2, 28, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "leap year february",
			in:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			n:    1,
			want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "twelve months crosses year",
			in:   time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC),
			n:    12,
			want: time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonthsClamped(tt.in, tt.n))
		})
	}
}

func TestInitKeepsFirstTimezone(t *testing.T) {
	require.NoError(t, Init("UTC"))
	require.NoError(t, Init("America/Sao_Paulo"))
	assert.Equal(t, "UTC", Location().String())
}
