package pointer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_To(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give any
	}{
		{
			name: "string",
			give: "available",
		},
		{
			name: "time",
			give: time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "int64",
			give: int64(7),
		},
		{
			name: "int",
			give: 7,
		},
		{
			name: "float64",
			give: float64(1),
		},
		{
			name: "bool",
			give: true,
		},
		{
			name: "struct",
			give: struct{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.give, *To(tt.give))
		})
	}
}
