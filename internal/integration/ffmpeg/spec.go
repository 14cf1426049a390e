package ffmpeg

import "strconv"

func itoa(v int) string {
	return strconv.Itoa(v)
}

func rawFormatFlag(bitDepth int) string {
	// 32 = s32le, 24 = s24le, 16 = s16le
	//nolint:gosec // we fine, gosec
	return "s" + strconv.Itoa(bitDepth) + "le"
}

func rawCodecName(bitDepth int) string {
	switch bitDepth {
	case 24:
		return "pcm_s24le"
	case 32:
		return "pcm_s32le"
	default:
		return "pcm_s16le"
	}
}
