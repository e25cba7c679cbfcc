package loaders

import (
	"os"
	"path/filepath"
	"strings"
)

// ReadFunc reads a whole file. Loaders default to os.ReadFile; the asset
// manager swaps in its byte cache.
type ReadFunc func(path string) ([]byte, error)

/**
 * @brief A generic structure for a loaded asset. All loaders
 * load data into these.
 */
type Asset struct {
	/** @brief The name of the asset, the file stem unless the format names it. */
	Name string
	/** @brief The full file path of the asset. */
	FullPath string
	/** @brief The size of the decoded data in bytes. */
	DataSize uint64
	/** @brief The decoded data, one of the *Data types of this package. */
	Data interface{}
}

func readWith(read ReadFunc, path string) ([]byte, error) {
	if read == nil {
		return os.ReadFile(path)
	}
	return read(path)
}

func nameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
