package canon

// Tag bytes distinguish kinds so that, e.g., the integer 5 and the string
// "5" never share a prefix. Values 0x00-0x1f are reserved for this
// package; Tagged implementations are free to use any byte, including
// these, since they bypass generic dispatch entirely and are never mixed
// into the same sorted collection as a generically-encoded value of a
// different kind without also differing in surrounding framing.
const (
	tagNil     byte = 0x00
	tagBool    byte = 0x01
	tagInt     byte = 0x02
	tagUint    byte = 0x03
	tagFloat32 byte = 0x04
	tagFloat64 byte = 0x05
	tagString  byte = 0x06
	tagBytes   byte = 0x07
	tagSlice   byte = 0x10
	tagSet     byte = 0x11
	tagMap     byte = 0x12
	tagRecord  byte = 0x13
	tagFunc    byte = 0x14
	tagBuffer  byte = 0x15
)
