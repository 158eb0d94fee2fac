package clipboard

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/draw"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"golang.org/x/image/bmp"
)

// bmpFileHeader is the BITMAPFILEHEADER that precedes the DIB in a .bmp file.
// CF_DIB wants the bytes that follow it.
const bmpFileHeader = 14

// dropFilesHeader is sizeof(DROPFILES): pFiles, pt.x, pt.y, fNC, fWide.
const dropFilesHeader = 20

// EncodeDIB converts img to an opaque RGB bitmap and returns it in CF_DIB
// layout: BITMAPINFOHEADER followed by bottom-up pixel rows.
func EncodeDIB(img image.Image) ([]byte, error) {
	b := img.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgb, rgb.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, rgb); err != nil {
		return nil, err
	}
	return buf.Bytes()[bmpFileHeader:], nil
}

// EncodeDropFiles builds a CF_HDROP payload: a DROPFILES header with
// pFiles=20 and fWide=1, then every absolute path as NUL-terminated UTF-16LE,
// then a final NUL.
func EncodeDropFiles(paths []string) []byte {
	abs := make([]string, len(paths))
	for i, p := range paths {
		if a, err := filepath.Abs(p); err == nil {
			p = a
		}
		abs[i] = p
	}
	units := utf16.Encode([]rune(strings.Join(abs, "\x00") + "\x00\x00"))

	out := make([]byte, dropFilesHeader+2*len(units))
	binary.LittleEndian.PutUint32(out[0:], dropFilesHeader)
	binary.LittleEndian.PutUint32(out[16:], 1)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[dropFilesHeader+2*i:], u)
	}
	return out
}

// DecodeDropFiles is the inverse of EncodeDropFiles.
func DecodeDropFiles(data []byte) []string {
	if len(data) < dropFilesHeader {
		return nil
	}
	off := binary.LittleEndian.Uint32(data[0:])
	if int(off) > len(data) {
		return nil
	}
	body := data[off:]
	units := make([]uint16, len(body)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(body[2*i:])
	}
	var out []string
	start := 0
	for i, u := range units {
		if u != 0 {
			continue
		}
		if i == start {
			break
		}
		out = append(out, string(utf16.Decode(units[start:i])))
		start = i + 1
	}
	return out
}
