package tracefile

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

func sampleRecord() *tracelog.Record {
	r := tracelog.NewRecord()
	r.RegisterCall("", 1, tracelog.TopLevelName, nil)
	self := r.RawValue("main", "Object")
	r.RegisterVariable(tracelog.SelfName, self)
	r.RegisterStep("a.rb", 2)
	r.RegisterCall("a.rb", 2, "greet", []tracelog.FullValueRecord{r.Arg(tracelog.SelfName, self)})
	p := r.StructValue("Point", []string{"x", "y"}, []tracelog.ValueRecord{r.IntValue(1), r.FloatValue(0.5)})
	r.RegisterStep("a.rb", 3)
	r.RegisterVariable("p", p)
	r.RegisterSpecialEvent(tracelog.EventWrite, "<b>hi</b>")
	r.RegisterSpecialEvent(tracelog.EventError, "boom")
	r.RegisterVariable(tracelog.ReturnValueName, r.NoneValue())
	r.RegisterReturn(r.NoneValue())
	r.DropLastStep()
	return r
}

func TestWriteLoadRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatBinary} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out", "nested")
			rec := sampleRecord()

			err := Write(context.Background(), rec, Options{Dir: dir, Format: format, Program: "a.rb"})
			require.NoError(t, err)

			loaded, err := Load(dir)
			require.NoError(t, err)
			require.Equal(t, format, loaded.Format)
			require.Equal(t, "a.rb", loaded.Metadata.Program)
			require.Equal(t, []string{}, loaded.Metadata.Args)
			require.NotEmpty(t, loaded.Metadata.Workdir)
			require.Equal(t, rec.Paths(), loaded.Paths)

			if diff := cmp.Diff(rec.Events(), loaded.Events, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}

			rep := Verify(loaded)
			require.True(t, rep.OK(), "problems: %v", rep.Problems)
			require.Equal(t, 2, rep.Calls)
			require.Equal(t, 1, rep.Returns)
			require.Equal(t, 1, rep.IO)
			require.Equal(t, 1, rep.Errors)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, e := range entries {
				require.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
			}
		})
	}
}

func TestWriteNonFiniteFloat(t *testing.T) {
	dir := t.TempDir()
	rec := tracelog.NewRecord()
	rec.RegisterCall("", 1, tracelog.TopLevelName, nil)
	rec.RegisterVariable(tracelog.ReturnValueName, rec.FloatValue(math.NaN()))
	rec.RegisterReturn(rec.FloatValue(math.Inf(-1)))

	require.NoError(t, Write(context.Background(), rec, Options{Dir: dir, Format: FormatJSON, Program: "nan.rb"}))
	loaded, err := Load(dir)
	require.NoError(t, err)
	require.True(t, Verify(loaded).OK())
}

func TestWriteJSONIsPrettyAndUnescaped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(context.Background(), sampleRecord(), Options{Dir: dir}))

	data, err := os.ReadFile(filepath.Join(dir, TraceJSON))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"Type\": {"), "got %.40q", data)
	require.Contains(t, string(data), `"content": "<b>hi</b>"`)
	require.Contains(t, string(data), `"DropLastStep"`)

	meta, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	require.Contains(t, string(meta), `"args": []`)
}

func TestWriteReportsProgress(t *testing.T) {
	ch := make(chan Event, 32)
	err := Write(context.Background(), sampleRecord(), Options{
		Dir:      t.TempDir(),
		Progress: ChannelSink{Ch: ch},
	})
	require.NoError(t, err)
	close(ch)

	done := map[string]bool{}
	var final bool
	for evt := range ch {
		require.NoError(t, evt.Err)
		if evt.Status != StatusDone {
			continue
		}
		if evt.File == "" {
			final = true
			continue
		}
		require.Positive(t, evt.Bytes)
		done[evt.File] = true
	}
	require.True(t, final)
	require.Equal(t, map[string]bool{TraceJSON: true, MetadataFile: true, PathsFile: true}, done)
}

func TestVerifyFindsDanglingIDs(t *testing.T) {
	tr := &Trace{
		Events: tracelog.Events{
			tracelog.PathRecord{Path: "a.rb"},
			tracelog.StepRecord{PathID: 1, Line: 1},
			tracelog.CallRecord{FunctionID: 0},
			tracelog.ValueEventRecord{FullValueRecord: tracelog.FullValueRecord{
				VariableID: 0,
				Value:      tracelog.ValueRecord{Kind: tracelog.ValueInt, TypeID: 3},
			}},
		},
		Paths: []string{"a.rb"},
	}
	rep := Verify(tr)
	require.False(t, rep.OK())

	var details []string
	for _, p := range rep.Problems {
		details = append(details, p.String())
	}
	want := []string{
		"event 1 (Step): path_id 1 out of range [0, 1)",
		"event 2 (Call): function_id 0 out of range [0, 0)",
		"event 3 (Value): variable_id 0 out of range [0, 0)",
		"event 3 (Value): type_id 3 out of range [0, 0)",
	}
	require.Equal(t, want, details)
}

func TestLoadMissingArtifacts(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Binary")
	require.NoError(t, err)
	require.Equal(t, FormatBinary, f)
	require.Equal(t, TraceBinary, f.FileName())

	_, err = ParseFormat("yaml")
	require.Error(t, err)
}
