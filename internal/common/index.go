package common

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

const (
	// MagicIDX is the magic header of the byte-offset index file.
	MagicIDX = "QIDX"
	// BlockTargetSize is the target size of an uncompressed block.
	BlockTargetSize = 64 * 1024
)

// BlockMeta describes a single compressed block in the sparse footer.
type BlockMeta struct {
	StartRecord int64 `json:"startRecord"` // first record number in the block
	Offset      int64 `json:"offset"`      // byte offset within the .idx file
	Length      int64 `json:"length"`      // compressed length in bytes
	RecordCount int64 `json:"recordCount"` // number of records in the block
}

// SparseIndex is the footer of the .idx file: one entry per block,
// sorted by StartRecord, enabling binary search by record number.
type SparseIndex struct {
	Blocks []BlockMeta `json:"blocks"`
}

// IndexWriter appends IndexRecords and flushes them as LZ4-compressed
// blocks, writing a JSON sparse footer on Close. Because record numbers
// increase monotonically as the source is scanned, no sort is needed —
// this is a straight append, unlike a sort-key index.
type IndexWriter struct {
	w           io.Writer
	buffer      []IndexRecord
	currentSize int
	sparseIndex SparseIndex
	offset      int64
	lw          *lz4.Writer
	rawBuf      bytes.Buffer
	compBuf     bytes.Buffer
}

// NewIndexWriter writes the magic header and returns a ready writer.
func NewIndexWriter(w io.Writer) (*IndexWriter, error) {
	n, err := w.Write([]byte(MagicIDX))
	if err != nil {
		return nil, err
	}
	lw := lz4.NewWriter(io.Discard)
	_ = lw.Apply(lz4.BlockSizeOption(lz4.Block64Kb))
	return &IndexWriter{
		w:      w,
		buffer: make([]IndexRecord, 0, 1000),
		offset: int64(n),
		lw:     lw,
	}, nil
}

// Append adds a record-number/offset pair, flushing a block when full.
func (iw *IndexWriter) Append(rec IndexRecord) error {
	iw.buffer = append(iw.buffer, rec)
	iw.currentSize += RecordSize
	if iw.currentSize >= BlockTargetSize {
		return iw.flushBlock()
	}
	return nil
}

func (iw *IndexWriter) flushBlock() error {
	if len(iw.buffer) == 0 {
		return nil
	}
	iw.rawBuf.Reset()
	if err := WriteBatchRecords(&iw.rawBuf, iw.buffer); err != nil {
		return err
	}

	iw.compBuf.Reset()
	iw.lw.Reset(&iw.compBuf)
	if _, err := iw.lw.Write(iw.rawBuf.Bytes()); err != nil {
		return err
	}
	if err := iw.lw.Close(); err != nil {
		return err
	}
	compressed := iw.compBuf.Bytes()

	meta := BlockMeta{
		StartRecord: iw.buffer[0].RecordNum,
		Offset:      iw.offset,
		Length:      int64(len(compressed)),
		RecordCount: int64(len(iw.buffer)),
	}
	iw.sparseIndex.Blocks = append(iw.sparseIndex.Blocks, meta)

	n, err := iw.w.Write(compressed)
	if err != nil {
		return err
	}
	iw.offset += int64(n)

	iw.buffer = iw.buffer[:0]
	iw.currentSize = 0
	return nil
}

// Close flushes any remaining buffer and writes the sparse footer.
func (iw *IndexWriter) Close() error {
	if err := iw.flushBlock(); err != nil {
		return err
	}
	footer, err := json.Marshal(iw.sparseIndex)
	if err != nil {
		return err
	}
	n, err := iw.w.Write(footer)
	if err != nil {
		return err
	}
	return binary.Write(iw.w, binary.BigEndian, int64(n))
}

// IndexReader reads blocks from a .idx file, seek-based or mmap-based.
type IndexReader struct {
	r         io.ReadSeeker
	mmapData  []byte
	Footer    SparseIndex
	compBuf   []byte
	decompBuf []byte
	recBuf    []IndexRecord
}

// NewIndexReader loads the footer from a seekable reader.
func NewIndexReader(r io.ReadSeeker) (*IndexReader, error) {
	if _, err := r.Seek(-8, io.SeekEnd); err != nil {
		return nil, err
	}
	var footerLen int64
	if err := binary.Read(r, binary.BigEndian, &footerLen); err != nil {
		return nil, err
	}
	if _, err := r.Seek(-(8 + footerLen), io.SeekEnd); err != nil {
		return nil, err
	}
	footerBytes := make([]byte, footerLen)
	if _, err := io.ReadFull(r, footerBytes); err != nil {
		return nil, err
	}
	var footer SparseIndex
	if err := json.Unmarshal(footerBytes, &footer); err != nil {
		return nil, err
	}
	return &IndexReader{r: r, Footer: footer}, nil
}

// NewIndexReaderMmap memory-maps path and parses its footer zero-copy.
func NewIndexReaderMmap(path string) (*IndexReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := MmapFile(f)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		_ = MunmapFile(data)
		return nil, fmt.Errorf("index file too small: %d bytes", len(data))
	}

	footerLen := int64(binary.BigEndian.Uint64(data[len(data)-8:]))
	footerStart := int64(len(data)) - 8 - footerLen
	if footerStart < int64(len(MagicIDX)) {
		_ = MunmapFile(data)
		return nil, fmt.Errorf("invalid index footer: start=%d", footerStart)
	}

	var footer SparseIndex
	if err := json.Unmarshal(data[footerStart:int64(len(data))-8], &footer); err != nil {
		_ = MunmapFile(data)
		return nil, err
	}
	return &IndexReader{mmapData: data, Footer: footer}, nil
}

// Cleanup releases mmap resources; a no-op on seek-based readers.
func (ir *IndexReader) Cleanup() {
	if ir.mmapData != nil {
		_ = MunmapFile(ir.mmapData)
		ir.mmapData = nil
	}
}

// FindBlock returns the last block whose StartRecord is <= recordNum, or
// -1 if recordNum precedes the first block. A recordNum past the end of
// the index maps to the last block.
func (ir *IndexReader) FindBlock(recordNum int64) int {
	blocks := ir.Footer.Blocks
	lo, hi := 0, len(blocks)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if blocks[mid].StartRecord <= recordNum {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// ReadBlock decompresses and batch-parses a single block.
func (ir *IndexReader) ReadBlock(meta BlockMeta) ([]IndexRecord, error) {
	var compData []byte

	if ir.mmapData != nil {
		end := meta.Offset + meta.Length
		if end > int64(len(ir.mmapData)) {
			return nil, fmt.Errorf("block extends past mmap boundary: %d > %d", end, len(ir.mmapData))
		}
		compData = ir.mmapData[meta.Offset:end]
	} else {
		if _, err := ir.r.Seek(meta.Offset, io.SeekStart); err != nil {
			return nil, err
		}
		needed := int(meta.Length)
		if cap(ir.compBuf) < needed {
			ir.compBuf = make([]byte, needed)
		}
		ir.compBuf = ir.compBuf[:needed]
		if _, err := io.ReadFull(ir.r, ir.compBuf); err != nil {
			return nil, err
		}
		compData = ir.compBuf
	}

	lr := lz4.NewReader(bytes.NewReader(compData))
	if cap(ir.decompBuf) < BlockTargetSize*2 {
		ir.decompBuf = make([]byte, 0, BlockTargetSize*2)
	}
	ir.decompBuf = ir.decompBuf[:0]

	var tmp [8192]byte
	for {
		n, err := lr.Read(tmp[:])
		if n > 0 {
			ir.decompBuf = append(ir.decompBuf, tmp[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	count := len(ir.decompBuf) / RecordSize
	if cap(ir.recBuf) < count {
		ir.recBuf = make([]IndexRecord, count)
	}
	ir.recBuf = ir.recBuf[:count]
	for i := 0; i < count; i++ {
		o := i * RecordSize
		ir.recBuf[i] = IndexRecord{
			RecordNum: int64(binary.BigEndian.Uint64(ir.decompBuf[o : o+8])),
			Offset:    int64(binary.BigEndian.Uint64(ir.decompBuf[o+8 : o+16])),
		}
	}
	return ir.recBuf, nil
}

// OffsetOf returns the file offset of recordNum, or an error if the
// index has no block covering it.
func (ir *IndexReader) OffsetOf(recordNum int64) (int64, error) {
	bi := ir.FindBlock(recordNum)
	if bi < 0 {
		return 0, fmt.Errorf("record %d precedes first indexed block", recordNum)
	}
	recs, err := ir.ReadBlock(ir.Footer.Blocks[bi])
	if err != nil {
		return 0, err
	}
	for _, r := range recs {
		if r.RecordNum == recordNum {
			return r.Offset, nil
		}
	}
	return 0, fmt.Errorf("record %d not found in its block", recordNum)
}
