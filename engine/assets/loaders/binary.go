package loaders

import "fmt"

const spirvMagic uint32 = 0x07230203

// decodeSPIRV turns a little-endian SPIR-V module into words and checks its
// magic number.
func decodeSPIRV(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("spir-v size %d is not a multiple of 4", len(b))
	}
	code := bytesToBytecode(b)
	if code[0] != spirvMagic {
		return nil, fmt.Errorf("bad spir-v magic 0x%08x", code[0])
	}
	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}
	return byteCode
}
