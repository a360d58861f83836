package offline

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"

	xerrors "SongForge/internal/errors"
)

const ticksPerBeat = 480

var noteOffsets = map[string]int{
	"C": 0, "C#": 1, "DB": 1, "D": 2, "D#": 3, "EB": 3, "E": 4, "F": 5,
	"F#": 6, "GB": 6, "G": 7, "G#": 8, "AB": 8, "A": 9, "A#": 10, "BB": 10, "B": 11,
}

// rootAndScale parses keys like "A-Minor" or "C#-Major".
func rootAndScale(key string) (int, []int) {
	upper := strings.ToUpper(strings.TrimSpace(key))
	name := upper
	if i := strings.IndexAny(upper, "- "); i > 0 {
		name = upper[:i]
	}
	root := 60
	if off, ok := noteOffsets[name]; ok {
		root = 60 + off
	}
	if strings.Contains(upper, "MIN") {
		return root, []int{0, 2, 3, 5, 7, 8, 10, 12}
	}
	return root, []int{0, 2, 4, 5, 7, 9, 11, 12}
}

func varLen(v uint32) []byte {
	out := []byte{byte(v & 0x7f)}
	for v >>= 7; v > 0; v >>= 7 {
		out = append([]byte{byte(v&0x7f) | 0x80}, out...)
	}
	return out
}

// buildMidi returns a format-0 MIDI file arpeggiating one chord per bar up the scale.
func buildMidi(key string, bpm, bars int) []byte {
	if bpm <= 0 {
		bpm = 120
	}
	root, scale := rootAndScale(key)
	chord := []int{0, 4, 7, 12}
	if scale[2] == 3 {
		chord = []int{0, 3, 7, 12}
	}
	tempo := uint32(60_000_000 / bpm)

	var track bytes.Buffer
	track.Write([]byte{0x00, 0xff, 0x51, 0x03, byte(tempo >> 16), byte(tempo >> 8), byte(tempo)})
	for bar := 0; bar < bars; bar++ {
		step := scale[bar%len(scale)]
		for _, interval := range chord {
			note := byte(root + step + interval)
			track.Write(varLen(0))
			track.Write([]byte{0x90, note, 0x60})
			track.Write(varLen(ticksPerBeat))
			track.Write([]byte{0x80, note, 0x00})
		}
	}
	track.Write([]byte{0x00, 0xff, 0x2f, 0x00})

	var out bytes.Buffer
	out.WriteString("MThd")
	_ = binary.Write(&out, binary.BigEndian, uint32(6))
	_ = binary.Write(&out, binary.BigEndian, []uint16{0, 1, ticksPerBeat})
	out.WriteString("MTrk")
	_ = binary.Write(&out, binary.BigEndian, uint32(track.Len()))
	out.Write(track.Bytes())
	return out.Bytes()
}

// renderCover paints a diagonal gradient between two colours derived from seed.
func renderCover(size int, seed string) (string, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum64()
	from := color.RGBA{R: byte(sum), G: byte(sum >> 8), B: byte(sum >> 16), A: 0xff}
	to := color.RGBA{R: byte(sum >> 24), G: byte(sum >> 32), B: byte(sum >> 40), A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	span := 2 * (size - 1)
	if span == 0 {
		span = 1
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(span)
			img.Set(x, y, color.RGBA{
				R: mix(from.R, to.R, t),
				G: mix(from.G, to.G, t),
				B: mix(from.B, to.B, t),
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", xerrors.Wrap(xerrors.CodeBackendFailure, err, "encode cover art")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func mix(a, b byte, t float64) byte {
	return byte(float64(a)*(1-t) + float64(b)*t)
}
