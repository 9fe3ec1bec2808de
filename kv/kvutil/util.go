package kvutil

// NextPrefix returns the smallest key that is lexicographically larger than every key
// starting with prefix. It returns nil if no such key exists (prefix is all 0xFF).
func NextPrefix(prefix []byte) []byte {
	buf := make([]byte, len(prefix))
	copy(buf, prefix)
	var i int
	for i = len(prefix) - 1; i >= 0; i-- {
		buf[i]++
		if buf[i] != 0 {
			break
		}
	}
	if i == -1 {
		return nil
	}
	return buf[:i+1]
}

// Successor returns the smallest key that sorts after key
func Successor(key []byte) []byte {
	buf := make([]byte, len(key)+1)
	copy(buf, key)
	return buf
}
