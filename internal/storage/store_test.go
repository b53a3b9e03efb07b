package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/ptune/internal/lti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() (RunMetadata, Response) {
	meta := RunMetadata{
		Name:      "unstable_first_order",
		Plant:     PlantRecord{Num: []float64{1}, Den: []float64{1, -2}},
		Target:    2,
		Gain:      3.956,
		Found:     true,
		Converged: true,
		Attempts:  1,
		Method:    "zoh",
		Global:    "de",
		Seed:      42,
		Achieved:  &lti.StepInfo{SettlingTime: 2.0001, SteadyState: 2.02},
		Metrics:   map[string]float64{"iae": 0.75},
	}
	resp := Response{
		Times:      []float64{0, 0.5, 1},
		Original:   []float64{0, 0.7, 1.7},
		Controlled: []float64{0, 1.25, 1.71},
	}
	return meta, resp
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	meta, resp := sampleRun()
	runID, err := st.Save(meta, resp)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "unstable_first_order_"))

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, loaded.ID)
	assert.Equal(t, uint64(42), loaded.Seed)
	assert.Equal(t, 3.956, loaded.Gain)
	assert.Equal(t, 0.75, loaded.Metrics["iae"])
	require.NotNil(t, loaded.Achieved)
	assert.Equal(t, 2.0001, loaded.Achieved.SettlingTime)
	assert.False(t, loaded.Timestamp.IsZero())

	got, err := st.LoadResponse(runID)
	require.NoError(t, err)
	assert.Equal(t, resp, *got)
}

func TestStoreSave_WithoutControlledResponse(t *testing.T) {
	st := New(t.TempDir())
	meta, resp := sampleRun()
	meta.Found = false
	resp.Controlled = nil

	runID, err := st.Save(meta, resp)
	require.NoError(t, err)

	got, err := st.LoadResponse(runID)
	require.NoError(t, err)
	assert.Empty(t, got.Controlled)
	assert.Equal(t, resp.Original, got.Original)
}

func TestStoreSave_WithoutOriginalResponse(t *testing.T) {
	st := New(t.TempDir())
	meta, resp := sampleRun()
	resp.Original = nil

	runID, err := st.Save(meta, resp)
	require.NoError(t, err)

	got, err := st.LoadResponse(runID)
	require.NoError(t, err)
	assert.Empty(t, got.Original)
	assert.Equal(t, resp.Times, got.Times)
	assert.Equal(t, resp.Controlled, got.Controlled)
}

func TestStoreSave_MismatchedColumns(t *testing.T) {
	meta, resp := sampleRun()
	resp.Original = resp.Original[:2]
	_, err := New(t.TempDir()).Save(meta, resp)
	assert.Error(t, err)
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	meta, resp := sampleRun()
	meta.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older, err := st.Save(meta, resp)
	require.NoError(t, err)

	meta.Timestamp = meta.Timestamp.Add(time.Hour)
	newer, err := st.Save(meta, resp)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "junk"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].ID)
	assert.Equal(t, older, runs[1].ID)
}

func TestStoreLoad_NotFound(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = st.LoadResponse("../../etc")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	meta, resp := sampleRun()
	runID, err := st.Save(meta, resp)
	require.NoError(t, err)

	var js bytes.Buffer
	require.NoError(t, st.ExportJSON(&js, runID))
	var data ExportData
	require.NoError(t, json.Unmarshal(js.Bytes(), &data))
	assert.Equal(t, runID, data.Run.ID)
	assert.Equal(t, resp.Controlled, data.Controlled)

	var csvOut bytes.Buffer
	require.NoError(t, st.ExportCSV(&csvOut, runID))
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	assert.Equal(t, "time,original,controlled", lines[0])
	assert.Len(t, lines, 4)

	assert.ErrorIs(t, st.ExportCSV(&csvOut, "missing"), ErrRunNotFound)
}
