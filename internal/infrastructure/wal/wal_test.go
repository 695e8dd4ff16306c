package wal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func replayAll(t *testing.T, w *WAL) []testRecord {
	t.Helper()

	var got []testRecord
	err := w.Replay(func(raw json.RawMessage) error {
		var rec testRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)

	return got
}

func TestWAL_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := Open(path)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, w.Append(testRecord{Seq: i, Note: "n"}))
	}
	require.NoError(t, w.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got := replayAll(t, reopened)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Seq)
	assert.Equal(t, 3, got[2].Seq)
}

func TestWAL_TornTailIsTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(testRecord{Seq: 1}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, FileMode)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":2,"no`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w, err = Open(path)
	require.NoError(t, err)

	got := replayAll(t, w)
	require.Len(t, got, 1)

	require.NoError(t, w.Append(testRecord{Seq: 3}))
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()

	got = replayAll(t, w)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1].Seq)
}

func TestWAL_ClosedLog(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "ledger.wal"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Append(testRecord{Seq: 1}), ErrClosed)
	assert.NoError(t, w.Close())
}
