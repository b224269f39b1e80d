package core

// The header id carries (index, count) of a part: the low 16 bits are the index,
// the high 16 bits are count-1 (so a count of MaxParts still fits).
// The value is XORed with Key.Mask of the part's own name, which is independent of the name chain.
// Without the key the id tells nothing about the position or the other parts of the set;
// with the key and the file name anyone can decode it, so it is not encryption.

// encodeID packs index and count for the part with the given name.
// Callers guarantee 0 <= index < count <= MaxParts.
func encodeID(key Key, name string, index, count int) uint32 {
	raw := uint32(count-1)<<16 | uint32(index)
	return raw ^ key.Mask(name)
}

// decodeID is the inverse of encodeID.
func decodeID(key Key, name string, id uint32) (index, count int) {
	raw := id ^ key.Mask(name)
	return int(raw & 0xFFFF), int(raw>>16) + 1
}
