package index

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// sniffBytes is how much of a record file is inspected to guess its charset.
const sniffBytes = 64 * 1024

// EncodingByName returns the decoder for a charset name. "" and "auto" return
// nil, meaning the charset is detected; "utf-8" returns encoding.Nop.
func EncodingByName(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return nil, nil
	case "utf-8", "utf8":
		return encoding.Nop, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15, nil
	case "iso-8859-2", "latin2":
		return charmap.ISO8859_2, nil
	case "koi8-r":
		return charmap.KOI8R, nil
	case "shift_jis", "shift-jis", "sjis":
		return japanese.ShiftJIS, nil
	case "euc-jp", "eucjp":
		return japanese.EUCJP, nil
	case "euc-kr", "euckr":
		return korean.EUCKR, nil
	case "gb2312", "gbk":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "big5", "big-5":
		return traditionalchinese.Big5, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// DetectEncoding guesses the charset of sample. Valid UTF-8 wins outright;
// otherwise the detector's best guess is used when it is confident, and
// Windows-1252 when it is not, since every byte sequence decodes under it.
func DetectEncoding(sample []byte) encoding.Encoding {
	if validUTF8Prefix(sample) {
		return encoding.Nop
	}

	minConfidence := 30 // short samples give low scores
	if len(sample) > 50 {
		minConfidence = 50
	}
	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err == nil && result.Confidence >= minConfidence {
		if enc, err := EncodingByName(result.Charset); err == nil && enc != nil {
			decoded, err := enc.NewDecoder().Bytes(sample)
			if err == nil && utf8.Valid(decoded) {
				return enc
			}
		}
	}
	return charmap.Windows1252
}

// validUTF8Prefix reports whether sample is UTF-8, allowing a rune cut off at
// the end of the sample.
func validUTF8Prefix(sample []byte) bool {
	for i := 0; i < len(sample); {
		r, size := utf8.DecodeRune(sample[i:])
		if r == utf8.RuneError && size == 1 {
			return len(sample)-i < utf8.UTFMax && !utf8.FullRune(sample[i:])
		}
		i += size
	}
	return true
}

// decodeReader converts r to UTF-8. A nil enc means detect from the start of
// the stream.
func decodeReader(r io.Reader, enc encoding.Encoding) (io.Reader, error) {
	if enc == nil {
		br := bufio.NewReaderSize(r, sniffBytes)
		sample, err := br.Peek(sniffBytes)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, fmt.Errorf("sniff encoding: %w", err)
		}
		enc = DetectEncoding(sample)
		r = br
	}
	if enc == encoding.Nop {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// sanitizeUTF8 replaces invalid UTF-8 bytes with the replacement character.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
