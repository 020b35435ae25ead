package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeflow/internal/engine"
	"github.com/roach88/nodeflow/internal/graph"
	"github.com/roach88/nodeflow/internal/packet"
)

func newTestEngine() *engine.Engine {
	var tick int64
	return engine.New(graph.New(),
		engine.WithIDGenerator(engine.NewSequenceGenerator("pkt")),
		engine.WithNow(func() int64 { tick++; return tick }),
	)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	e := newTestEngine()
	e.Connect("a", "b", graph.PinRight, graph.PinLeft, graph.TypeCurve)
	pkt := e.AddPacket("a", "Notes", packet.TextPayload{Content: "hello"}, engine.Append())

	path := filepath.Join(t.TempDir(), "canvas.json")
	require.NoError(t, Save(path, Capture(e)))

	loaded, errs := Load(path)
	require.Empty(t, errs)
	assert.Equal(t, CurrentVersion, loaded.Version)

	restored := newTestEngine()
	Apply(loaded, restored)

	assert.Equal(t, 1, restored.Graph().Len())
	out := restored.Outgoing("a")
	require.Len(t, out, 1)
	assert.Equal(t, pkt.ID, out[0].ID)
	in := restored.Incoming("b")
	require.Len(t, in, 1)
	assert.Equal(t, pkt.ID, in[0].ID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, errs := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Len(t, errs, 1)
	var verr *ValidationError
	require.ErrorAs(t, errs[0], &verr)
	assert.Equal(t, ErrCodeRead, verr.Code)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1,`), 0o644))

	_, errs := Load(path)
	require.NotEmpty(t, errs)
	var verr *ValidationError
	require.ErrorAs(t, errs[0], &verr)
	assert.Equal(t, ErrCodeParse, verr.Code)
}

func TestLoad_SchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	content := `{
  "version": 1,
  "connections": [
    {
      "id": "c1",
      "source": "a",
      "target": "b",
      "source_pin": "top",
      "target_pin": "left",
      "connection_type": "curve"
    }
  ],
  "packets": {"outgoing": {}, "incoming": {}}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, errs := Load(path)
	require.NotEmpty(t, errs, "invalid pin value must be rejected")
	var verr *ValidationError
	require.ErrorAs(t, errs[0], &verr)
	assert.Equal(t, ErrCodeSchema, verr.Code)
}

func TestLoad_NewerVersionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.json")
	content := `{"version": 99, "connections": [], "packets": {"outgoing": {}, "incoming": {}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, errs := Load(path)
	require.Len(t, errs, 1)
	var verr *ValidationError
	require.ErrorAs(t, errs[0], &verr)
	assert.Equal(t, ErrCodeVersion, verr.Code)
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	content := `{
  "version": 0,
  "connections": [
    {"id": "", "source": "a", "target": "b", "source_pin": "left", "target_pin": "right", "connection_type": "zigzag"}
  ],
  "packets": {}
}`
	errs := Validate("bad.json", []byte(content))
	assert.GreaterOrEqual(t, len(errs), 2, "all violations reported, not just the first")
}

func TestSave_OverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")
	e := newTestEngine()

	require.NoError(t, Save(path, Capture(e)))
	require.NoError(t, Save(path, Capture(e)), "second save replaces the first")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCapture_FlushesUpgrades(t *testing.T) {
	e := newTestEngine()
	e.AddPacket("a", "A", packet.TextPayload{Content: "x"}, engine.Append())

	f := Capture(e)
	assert.Equal(t, CurrentVersion, f.Version)
	assert.NotNil(t, f.Connections)
	assert.NotNil(t, f.Packets.Outgoing)
}
