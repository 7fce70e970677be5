package vm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// diffSnapshots renders a human-readable delta between two Snapshots when
// they differ, instead of leaving a bare reflect.DeepEqual failure for
// whoever reads the test output to puzzle over.
func diffSnapshots(t *testing.T, want, got Snapshot) string {
	t.Helper()

	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)

	d, err := gojsondiff.New().Compare(wantJSON, gotJSON)
	require.NoError(t, err)
	if !d.Modified() {
		return ""
	}

	var wantMap map[string]interface{}
	require.NoError(t, json.Unmarshal(wantJSON, &wantMap))

	out, err := formatter.NewAsciiFormatter(wantMap, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       false,
	}).Format(d)
	require.NoError(t, err)
	return out
}

func TestSnapshotDiffReportsFieldChanges(t *testing.T) {
	m := NewDefault()
	require.NoError(t, m.push(Int(1)))

	before := m.Snapshot(PushConst)
	require.NoError(t, m.push(Int(2)))
	after := m.Snapshot(PushConst)

	delta := diffSnapshots(t, before, after)
	require.NotEmpty(t, delta, "sp advanced between snapshots, diff must be non-empty")
}

func TestSnapshotIonTextCarriesVMID(t *testing.T) {
	m := NewDefault()
	s := m.Snapshot(OpCount)
	text, err := s.MarshalIonText()
	require.NoError(t, err)
	require.Contains(t, string(text), m.ID.String())
}
