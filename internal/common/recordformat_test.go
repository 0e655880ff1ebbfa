package common

import (
	"bytes"
	"io"
	"testing"
)

func BenchmarkWriteRecord(b *testing.B) {
	rec := IndexRecord{RecordNum: 12345, Offset: 67890}

	b.ReportAllocs()
	b.ResetTimer()

	var buf bytes.Buffer
	buf.Grow(RecordSize)

	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := WriteRecord(&buf, rec); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadRecord(b *testing.B) {
	var buf bytes.Buffer
	rec := IndexRecord{RecordNum: 12345, Offset: 67890}
	_ = WriteRecord(&buf, rec)
	data := buf.Bytes()
	reader := bytes.NewReader(data)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		reader.Reset(data)
		_, err := ReadRecord(reader)
		if err != nil && err != io.EOF {
			b.Fatal(err)
		}
	}
}

func TestWriteReadRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := []IndexRecord{{RecordNum: 0, Offset: 0}, {RecordNum: 1, Offset: 42}, {RecordNum: 2, Offset: 1000}}
	if err := WriteBatchRecords(&buf, want); err != nil {
		t.Fatalf("WriteBatchRecords: %v", err)
	}
	got, err := ReadBatchRecords(&buf, len(want))
	if err != nil {
		t.Fatalf("ReadBatchRecords: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
