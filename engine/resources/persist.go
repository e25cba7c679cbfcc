package resources

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

/** @brief A magic number indicating the file as an anima binary file. */
const ResourceMagic uint32 = 0xdaaaadd1

/** @brief The envelope version written by WriteResourceFile. */
const ResourceVersion uint8 = 1

/**
 * @brief The header data for binary resource types.
 */
type ResourceHeader struct {
	/** @brief A magic number indicating the file as an anima binary file. */
	MagicNumber uint32
	/** @brief The resource type. */
	ResourceType uint8
	/** @brief The format version this resource uses. */
	Version uint8
	/** @brief Reserved for future header data.. */
	Reserved uint16
}

// WriteResourceFile writes the fixed header followed by the lz4-compressed
// gob encoding of payload.
func WriteResourceFile(path string, t ResourceType, payload interface{}) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return encodeResource(f, t, payload)
}

// ReadResourceFile reads a file written by WriteResourceFile for type t into payload.
func ReadResourceFile(path string, t ResourceType, payload interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decodeResource(bufio.NewReader(f), t, payload)
}

func encodeResource(w io.Writer, t ResourceType, payload interface{}) error {
	header := ResourceHeader{
		MagicNumber:  ResourceMagic,
		ResourceType: uint8(t),
		Version:      ResourceVersion,
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	zw := lz4.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(payload); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func decodeResource(r io.Reader, t ResourceType, payload interface{}) error {
	var header ResourceHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return core.ErrFileFormat
		}
		return err
	}
	if header.MagicNumber != ResourceMagic {
		return core.ErrFileFormat
	}
	if header.Version != ResourceVersion {
		return fmt.Errorf("%w: %d", core.ErrFileVersion, header.Version)
	}
	if ResourceType(header.ResourceType) != t {
		return fmt.Errorf("%w: file holds a %s, want %s", core.ErrTypeMismatch, ResourceType(header.ResourceType), t)
	}
	if err := gob.NewDecoder(lz4.NewReader(r)).Decode(payload); err != nil {
		return fmt.Errorf("%w: %w", core.ErrFileFormat, err)
	}
	return nil
}
