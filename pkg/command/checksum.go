package command

// HF2 page checksum: CRC-16/CCITT-FALSE (polynomial 0x1021, init 0xFFFF),
// computed over each flash page for the ChecksumPages command.

var crcTable [256]uint16

func init() {
	const poly uint16 = 0x1021

	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// PageChecksum calculates the HF2 checksum of one flash page
func PageChecksum(page []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range page {
		crc = crcTable[byte(crc>>8)^b] ^ (crc << 8)
	}
	return crc
}
