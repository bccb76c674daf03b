package ace128

// Position is a discrete rotational slot of the encoder, 0 to 127.
type Position uint8

// NumPositions is the number of distinct positions per revolution.
const NumPositions = 128

// invalid marks a code the encoder cannot produce.
const invalid = 0xff

const xx = invalid

// positionTable maps a packed pin code (P8 as the most significant bit) to a
// position. The ACE-128 tracks follow a non-binary pattern, so there is no
// arithmetic decode; only 128 of the 256 codes are reachable.
var positionTable = [256]uint8{
	xx, 56, 40, 55, 24, xx, 39, 52, 8, 57, xx, xx, 23, xx, 36, 13, // 0x00
	120, xx, 41, 54, xx, xx, xx, 53, 7, xx, xx, xx, 20, 19, 125, 18, // 0x10
	104, 105, xx, xx, 25, 106, 38, xx, xx, 58, xx, xx, xx, xx, 37, 14, // 0x20
	119, 118, xx, xx, xx, 107, xx, xx, 4, xx, 3, xx, 109, 108, 2, 1, // 0x30
	88, xx, 89, xx, xx, xx, xx, 51, 9, 10, 90, xx, 22, 11, xx, 12, // 0x40
	xx, xx, 42, 43, xx, xx, xx, xx, xx, xx, xx, xx, 21, xx, 126, 127, // 0x50
	103, xx, 102, xx, xx, xx, xx, xx, xx, xx, 91, xx, xx, xx, xx, xx, // 0x60
	116, 117, xx, xx, 115, xx, xx, xx, 93, 94, 92, xx, 114, 95, 113, 0, // 0x70
	72, 71, xx, 68, 73, xx, xx, 29, xx, 70, xx, 69, xx, xx, 35, 34, // 0x80
	121, xx, 122, xx, 74, xx, xx, 30, 6, xx, 123, xx, xx, xx, 124, 17, // 0x90
	xx, xx, xx, 67, 26, xx, 27, 28, xx, 59, xx, xx, xx, xx, xx, 15, // 0xa0
	xx, xx, xx, xx, xx, xx, xx, xx, 5, xx, xx, xx, 110, xx, 111, 16, // 0xb0
	87, 84, xx, 45, 86, 85, xx, 50, xx, xx, xx, 46, xx, xx, xx, 33, // 0xc0
	xx, 83, xx, 44, 75, xx, xx, 31, xx, xx, xx, xx, xx, xx, xx, 32, // 0xd0
	100, 61, 101, 66, xx, 62, xx, 49, 99, 60, xx, 47, xx, xx, xx, 48, // 0xe0
	77, 82, 78, 65, 76, 63, xx, 64, 98, 81, 79, 80, 97, 96, 112, xx, // 0xf0
}

// codeTable is the inverse of positionTable.
var codeTable = func() [NumPositions]uint8 {
	var codes [NumPositions]uint8
	for code, pos := range positionTable {
		if pos != invalid {
			codes[pos] = uint8(code)
		}
	}
	return codes
}()

// Lookup returns the position encoded by code. ok is false if the encoder
// cannot produce code, which happens while the wiper is between detents.
func Lookup(code uint8) (p Position, ok bool) {
	v := positionTable[code]
	if v == invalid {
		return 0, false
	}
	return Position(v), true
}

// Code returns the packed pin code the encoder produces at position p.
// ok is false if p is out of range.
func Code(p Position) (code uint8, ok bool) {
	if int(p) >= NumPositions {
		return 0, false
	}
	return codeTable[p], true
}
