package recordsrc

import (
	"os"

	"github.com/qsvcore/qsvcore/internal/common"
)

// BuildIndex reads src sequentially via Each and writes the `<path>.idx`
// byte-offset sidecar described in spec.md §4.1/§6. Unlike the teacher's
// sort-key index (which needs an external merge sort because keys are
// not monotonic), record numbers increase monotonically during a
// sequential scan, so this is a straight streaming append through
// internal/common.IndexWriter.
func BuildIndex(path string, opts Options) (err error) {
	src, err := Open(path, opts)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(path + ".idx")
	if err != nil {
		return common.Wrap(common.KindIO, "recordsrc.BuildIndex", err)
	}
	defer func() {
		cerr := out.Close()
		if err == nil {
			err = cerr
		}
	}()

	iw, err := common.NewIndexWriter(out)
	if err != nil {
		return common.Wrap(common.KindIO, "recordsrc.BuildIndex", err)
	}

	walkErr := src.Each(func(rec Record) error {
		return iw.Append(common.IndexRecord{RecordNum: rec.Num, Offset: rec.Offset})
	})
	if walkErr != nil {
		return common.Wrap(common.KindIO, "recordsrc.BuildIndex", walkErr)
	}

	return iw.Close()
}
