package supervisor

import (
	"io"
	"os"
	"strings"
)

const tailBlockSize = 32 * 1024

// Tail returns the last n lines of the file at path. It reads backwards in
// blocks so large rotated logs are not loaded whole.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	var chunk []byte
	offset := size
	newlines := 0
	for offset > 0 && newlines <= n {
		step := int64(tailBlockSize)
		if offset < step {
			step = offset
		}
		offset -= step
		buf := make([]byte, step)
		if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
			return nil, err
		}
		chunk = append(buf, chunk...)
		newlines = strings.Count(string(chunk), "\n")
	}

	text := strings.TrimRight(string(chunk), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
