package export

import (
	"bytes"
	"encoding/binary"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/myrjola/turnabout/internal/errors"
)

const (
	// Magic starts every artifact.
	Magic = "PWCX"
	// FormatVersion is the artifact layout version understood by the runtime.
	FormatVersion uint16 = 2

	headerSize   = len(Magic) + 2
	checksumSize = 8
)

var ErrCorrupt = errors.NewSentinel("corrupt artifact")

// encode lays out header, deterministic CBOR payload and xxhash64 trailer.
func encode(a *Artifact) ([]byte, error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, errors.Wrap(err, "cbor encode mode")
	}
	payload, err := mode.Marshal(a)
	if err != nil {
		return nil, errors.Wrap(err, "marshal artifact")
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(payload) + checksumSize)
	buf.WriteString(Magic)
	buf.Write(binary.BigEndian.AppendUint16(nil, FormatVersion))
	buf.Write(payload)
	buf.Write(binary.BigEndian.AppendUint64(nil, xxhash.Sum64(payload)))
	return buf.Bytes(), nil
}

// Decode verifies and decodes an artifact produced by [Pipeline.Export].
func Decode(data []byte) (*Artifact, error) {
	if len(data) < headerSize+checksumSize {
		return nil, errors.Wrap(ErrCorrupt, "artifact too short", slog.Int("size", len(data)))
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, errors.Wrap(ErrCorrupt, "bad magic", slog.String("magic", string(data[:len(Magic)])))
	}
	if version := binary.BigEndian.Uint16(data[len(Magic):headerSize]); version != FormatVersion {
		return nil, errors.Wrap(ErrCorrupt, "unsupported artifact version", slog.Int("version", int(version)))
	}
	payload := data[headerSize : len(data)-checksumSize]
	want := binary.BigEndian.Uint64(data[len(data)-checksumSize:])
	if got := xxhash.Sum64(payload); got != want {
		return nil, errors.Wrap(ErrCorrupt, "checksum mismatch",
			slog.Uint64("want", want), slog.Uint64("got", got))
	}
	var a Artifact
	if err := cbor.Unmarshal(payload, &a); err != nil {
		return nil, errors.Wrap(errors.Join(ErrCorrupt, err), "unmarshal artifact")
	}
	return &a, nil
}
