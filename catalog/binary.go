package catalog

// IsBinaryContent reports whether data looks binary: a null byte within the
// first 512 bytes.
func IsBinaryContent(data []byte) bool {
	checkSize := min(len(data), 512)
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
