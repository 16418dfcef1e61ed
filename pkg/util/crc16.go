package util

import "strconv"

func makeCRC16Table(poly uint16) [256]uint16 {
	var tab [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		tab[i] = crc
	}
	return tab
}

var crc16Tab = makeCRC16Table(0x1021)

// CRC16 is CRC-16/XMODEM, the variant redis cluster uses for key slots.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crc16Tab[byte(crc>>8)^b]
	}
	return crc
}

// GetCrc16 maps an id onto one of 16384 slots.
func GetCrc16(val int64) uint16 {
	return CRC16([]byte(strconv.FormatInt(val, 10))) % 16384
}
