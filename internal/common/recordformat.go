package common

import (
	"encoding/binary"
	"io"
)

// RecordSize is the fixed size of each entry in the byte-offset index file:
// RecordNum(8) + Offset(8) = 16 bytes.
const RecordSize = 8 + 8

// IndexRecord maps a 0-based record number to its byte offset in the
// source CSV. Unlike a sort key index, record numbers are monotonic, so
// the index is built by straight append rather than external sort.
type IndexRecord struct {
	RecordNum int64
	Offset    int64
}

// ReadRecord reads a single IndexRecord. Returns io.EOF at end of stream.
func ReadRecord(r io.Reader) (IndexRecord, error) {
	var buf [RecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return IndexRecord{}, err
	}
	return IndexRecord{
		RecordNum: int64(binary.BigEndian.Uint64(buf[0:8])),
		Offset:    int64(binary.BigEndian.Uint64(buf[8:16])),
	}, nil
}

// ReadBatchRecords reads count records with a single system call.
func ReadBatchRecords(r io.Reader, count int) ([]IndexRecord, error) {
	buf := make([]byte, count*RecordSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	recs := make([]IndexRecord, count)
	for i := 0; i < count; i++ {
		o := i * RecordSize
		recs[i] = IndexRecord{
			RecordNum: int64(binary.BigEndian.Uint64(buf[o : o+8])),
			Offset:    int64(binary.BigEndian.Uint64(buf[o+8 : o+16])),
		}
	}
	return recs, nil
}

// WriteRecord writes a single IndexRecord.
func WriteRecord(w io.Writer, rec IndexRecord) error {
	var buf [RecordSize]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(rec.RecordNum))
	binary.BigEndian.PutUint64(buf[8:16], uint64(rec.Offset))
	_, err := w.Write(buf[:])
	return err
}

// WriteBatchRecords writes a slice of records with a single write call.
func WriteBatchRecords(w io.Writer, recs []IndexRecord) error {
	if len(recs) == 0 {
		return nil
	}
	buf := make([]byte, len(recs)*RecordSize)
	for i, rec := range recs {
		o := i * RecordSize
		binary.BigEndian.PutUint64(buf[o:o+8], uint64(rec.RecordNum))
		binary.BigEndian.PutUint64(buf[o+8:o+16], uint64(rec.Offset))
	}
	_, err := w.Write(buf)
	return err
}
