// Package wal journals every state-changing operation before it is
// applied. Records are length-prefixed, CRC-checked, little-endian
// frames in size/age-rotated segment files; on boot the service
// replays any records past the last snapshot checkpoint.
package wal

import (
	"encoding/binary"
	"errors"
	"os"
	"time"
)

// frame: [u32 length][u32 crc][u8 type][u64 seq][i64 ts][payload]
// length covers everything after the crc field.
const frameHeader = 4 + 4
const recordHeader = 1 + 8 + 8

var ErrCorrupt = errors.New("wal: corrupt record")

// Config tunes segment rotation.
type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
}

// WAL is a segmented, append-only operation journal.
type WAL struct {
	cfg          Config
	current      *segment
	nextIndex    int
	lastRotation time.Time
}

// Open creates the journal directory and continues the highest
// existing segment.
func Open(cfg Config) (*WAL, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	segs, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, err
	}
	index := 0
	if n := len(segs); n > 0 {
		index = n - 1
	}
	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}
	return &WAL{
		cfg:          cfg,
		current:      seg,
		nextIndex:    index,
		lastRotation: time.Now(),
	}, nil
}

// Append frames, checksums and durably writes one record.
func (w *WAL) Append(r *Record) error {
	body := make([]byte, recordHeader+len(r.Data))
	body[0] = byte(r.Type)
	binary.LittleEndian.PutUint64(body[1:9], r.Seq)
	binary.LittleEndian.PutUint64(body[9:17], uint64(r.Time))
	copy(body[17:], r.Data)

	frame := make([]byte, frameHeader+len(body))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(frame[4:8], checksum(body))
	copy(frame[frameHeader:], body)

	if err := w.current.append(frame); err != nil {
		return err
	}
	if err := w.current.sync(); err != nil {
		return err
	}
	if w.shouldRotate() {
		return w.rotate()
	}
	return nil
}

func (w *WAL) shouldRotate() bool {
	return w.current.offset >= w.cfg.SegmentSize ||
		time.Since(w.lastRotation) >= w.cfg.SegmentDuration
}

func (w *WAL) rotate() error {
	if err := w.current.close(); err != nil {
		return err
	}
	w.nextIndex++
	seg, err := openSegment(w.cfg.Dir, w.nextIndex)
	if err != nil {
		return err
	}
	w.current = seg
	w.lastRotation = time.Now()
	return nil
}

// Close releases the active segment.
func (w *WAL) Close() error {
	return w.current.close()
}

// Replay streams records with seq greater than after, in order. A
// truncated or corrupt tail record ends the stream without error; the
// journal is append-only, so anything past it never committed.
func (w *WAL) Replay(after uint64, fn func(*Record) error) error {
	segs, err := listSegments(w.cfg.Dir)
	if err != nil {
		return err
	}
	for _, path := range segs {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		off := 0
		for off+frameHeader <= len(data) {
			length := int(binary.LittleEndian.Uint32(data[off : off+4]))
			crc := binary.LittleEndian.Uint32(data[off+4 : off+8])
			if length < recordHeader || off+frameHeader+length > len(data) {
				return nil
			}
			body := data[off+frameHeader : off+frameHeader+length]
			if checksum(body) != crc {
				return nil
			}
			off += frameHeader + length
			rec := &Record{
				Type: RecordType(body[0]),
				Seq:  binary.LittleEndian.Uint64(body[1:9]),
				Time: int64(binary.LittleEndian.Uint64(body[9:17])),
				Data: append([]byte(nil), body[17:]...),
			}
			if rec.Seq <= after {
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
