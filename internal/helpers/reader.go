package helpers

import "io"

// ReadLimitedAndClose reads at most limit bytes from r and closes it.
func ReadLimitedAndClose(r io.ReadCloser, limit int64) ([]byte, error) {
	defer r.Close()
	if limit <= 0 {
		return io.ReadAll(r)
	}
	return io.ReadAll(io.LimitReader(r, limit))
}
