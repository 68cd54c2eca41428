package wal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, dir string) *WAL {
	t.Helper()
	w, err := Open(Config{
		Dir:             dir,
		SegmentSize:     1 << 20,
		SegmentDuration: time.Hour,
	})
	require.NoError(t, err)
	return w
}

func TestAppendReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := openTest(t, dir)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, w.Append(&Record{
			Type: RecordLimit,
			Seq:  i,
			Time: int64(1000 + i),
			Data: []byte{byte(i), 0xAB},
		}))
	}
	require.NoError(t, w.Close())

	w2 := openTest(t, dir)
	defer w2.Close()
	var got []*Record
	require.NoError(t, w2.Replay(0, func(r *Record) error {
		got = append(got, r)
		return nil
	}))
	require.Len(t, got, 5)
	require.Equal(t, uint64(1), got[0].Seq)
	require.Equal(t, []byte{5, 0xAB}, got[4].Data)
	require.Equal(t, int64(1003), got[2].Time)
}

func TestReplaySkipsCheckpointed(t *testing.T) {
	dir := t.TempDir()
	w := openTest(t, dir)
	defer w.Close()
	for i := uint64(1); i <= 6; i++ {
		require.NoError(t, w.Append(&Record{Type: RecordCancel, Seq: i, Data: []byte{byte(i)}}))
	}
	var seqs []uint64
	require.NoError(t, w.Replay(4, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	}))
	require.Equal(t, []uint64{5, 6}, seqs)
}

func TestRotationKeepsReplayOrder(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 64, SegmentDuration: time.Hour})
	require.NoError(t, err)
	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, w.Append(&Record{Type: RecordLimit, Seq: i, Data: make([]byte, 30)}))
	}
	require.NoError(t, w.Close())

	segs, err := listSegments(dir)
	require.NoError(t, err)
	require.Greater(t, len(segs), 1)

	w2 := openTest(t, dir)
	defer w2.Close()
	last := uint64(0)
	require.NoError(t, w2.Replay(0, func(r *Record) error {
		require.Equal(t, last+1, r.Seq)
		last = r.Seq
		return nil
	}))
	require.Equal(t, uint64(20), last)
}

func TestCorruptTailEndsStream(t *testing.T) {
	dir := t.TempDir()
	w := openTest(t, dir)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, w.Append(&Record{Type: RecordLimit, Seq: i, Data: []byte{1, 2, 3}}))
	}
	require.NoError(t, w.Close())

	segs, err := listSegments(dir)
	require.NoError(t, err)
	path := segs[len(segs)-1]
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the last record's payload.
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	w2 := openTest(t, dir)
	defer w2.Close()
	var seqs []uint64
	require.NoError(t, w2.Replay(0, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	}))
	require.Equal(t, []uint64{1, 2}, seqs)
}

func TestOpenContinuesHighestSegment(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 64, SegmentDuration: time.Hour})
	require.NoError(t, err)
	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, w.Append(&Record{Type: RecordLimit, Seq: i, Data: make([]byte, 30)}))
	}
	require.NoError(t, w.Close())
	before, err := listSegments(dir)
	require.NoError(t, err)

	w2, err := Open(Config{Dir: dir, SegmentSize: 1 << 20, SegmentDuration: time.Hour})
	require.NoError(t, err)
	require.NoError(t, w2.Append(&Record{Type: RecordLimit, Seq: 11}))
	require.NoError(t, w2.Close())

	after, err := listSegments(dir)
	require.NoError(t, err)
	require.Equal(t, len(before), len(after))
	require.Equal(t, filepath.Base(before[len(before)-1]), filepath.Base(after[len(after)-1]))
}
