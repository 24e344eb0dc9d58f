package compressor

import "fmt"

var errZipNeedsReaderAt = fmt.Errorf("zip codec requires a ReaderAt source")

func errUnsupportedAlgo(algo Algo) error {
	return fmt.Errorf("unsupported compression algorithm: %q", algo)
}
