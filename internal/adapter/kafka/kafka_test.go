package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozonelab/o3skim/internal/pipeline"
)

func TestSerializeReport(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	report := &pipeline.SkimReport{
		Source:    "SourceA",
		Model:     "ModelX",
		GroupBy:   "decade",
		OutputDir: "/out/SourceA_ModelX",
		Files:     []string{"tco3_zm_2000-2010.nc", "vmro3_zm_2000-2010.nc"},
		SkimmedAt: now,
	}

	msg, err := serializeReport(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("SourceA_ModelX"), msg.Key)
	assert.Contains(t, string(msg.Value), `"model":"ModelX"`)
	assert.Contains(t, string(msg.Value), `"tco3_zm_2000-2010.nc"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("SourceA"), msg.Headers[0].Value)
	assert.Equal(t, "groupby", msg.Headers[1].Key)
	assert.Equal(t, []byte("decade"), msg.Headers[1].Value)
}

func TestSerializeReportFailedFiles(t *testing.T) {
	report := &pipeline.SkimReport{
		Source:  "SourceA",
		Model:   "ModelY",
		GroupBy: "none",
		Failed:  []string{"tco3_zm.nc"},
	}

	msg, err := serializeReport(report)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"failed":["tco3_zm.nc"]`)
}
