package naming

import (
	"strings"
	"testing"

	"github.com/ginjaninja78/zreport/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	assert.Equal(t, "Z 42", Identity("42"))
	assert.Equal(t, "Kafe A", Identity("Kafe A"))
	assert.Equal(t, "42b", Identity("42b"))
	assert.Equal(t, "", Identity(""))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		record types.ReportRecord
		want   string
	}{
		{
			name: "digit identifier",
			record: types.ReportRecord{
				Z:         types.String("42"),
				Date:      types.String("2024.05.17"),
				BuildDate: types.String("2024.05.18 09:15"),
			},
			want: "17052024-Z_42-18052024_0915",
		},
		{
			name: "numeric identifier",
			record: types.ReportRecord{
				Z:         types.Int(7),
				Date:      types.String("2024.01.02"),
				BuildDate: types.String("2024.01.03 23:59:10"),
			},
			want: "02012024-Z_7-03012024_2359",
		},
		{
			name: "text identifier with specials",
			record: types.ReportRecord{
				Z:         types.String("Kafé A/B"),
				Date:      types.String("Fredag 2024.05.17"),
				BuildDate: types.String("2024.05.18 09:15"),
			},
			want: "17052024-Kaf__A_B-18052024_0915",
		},
		{
			name: "dash separated dates",
			record: types.ReportRecord{
				Z:         types.String("3"),
				Date:      types.String("2024-05-17"),
				BuildDate: types.String("2024-05-18T09:15"),
			},
			want: "17052024-Z_3-18052024_0915",
		},
		{
			name: "short build date",
			record: types.ReportRecord{
				Z:         types.String("3"),
				Date:      types.String("2024.05.17"),
				BuildDate: types.String("2024.05.18"),
			},
			want: "17052024-Z_3-18052024_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.record)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.ContainsAny(got, `/\:*?"<>| `), "filename must be filesystem safe")
		})
	}
}

func TestFilename_Deterministic(t *testing.T) {
	record := types.ReportRecord{
		Z:         types.String("Kafe A"),
		Date:      types.String("2024.05.17"),
		BuildDate: types.String("2024.05.18 09:15"),
	}

	first := Filename(record)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Filename(record))
	}
}
