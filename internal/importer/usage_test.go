package importer

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/eratecompare/internal/tariff"
)

func TestReadUsageCSV(t *testing.T) {
	f, err := os.Open("testdata/usage.csv")
	require.NoError(t, err)
	defer f.Close()

	readings, err := ReadUsageCSV(f, time.UTC)
	require.NoError(t, err)
	require.Len(t, readings, 4)

	assert.Equal(t, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), readings[0].Time, "sorted by time")
	assert.Equal(t, 0.5, readings[0].KWh)
	assert.Equal(t, tariff.Export, readings[1].Direction)
	assert.Equal(t, tariff.Import, readings[3].Direction)
	assert.Equal(t, time.Date(2024, time.January, 8, 18, 0, 0, 0, time.UTC), readings[3].Time)
}

func TestReadUsageCSV_Errors(t *testing.T) {
	_, err := ReadUsageCSV(strings.NewReader("timestamp,value,direction\nyesterday,1,import\n"), time.UTC)
	assert.Error(t, err)

	_, err = ReadUsageCSV(strings.NewReader("timestamp,value,direction\n2024-01-01T00:00:00Z,1,both\n"), time.UTC)
	assert.Error(t, err)
}

func TestUsageCSVRoundTrip(t *testing.T) {
	in := []tariff.UsageReading{
		{Time: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), KWh: 1.25, Direction: tariff.Import},
		{Time: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), KWh: 0.75, Direction: tariff.Export},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteUsageCSV(&buf, in))

	out, err := ReadUsageCSV(&buf, time.UTC)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.True(t, in[i].Time.Equal(out[i].Time))
		assert.Equal(t, in[i].KWh, out[i].KWh)
		assert.Equal(t, in[i].Direction, out[i].Direction)
	}
}
