package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	// CompressedExt marks files holding a zstd compressed image.
	CompressedExt = ".zst"
	// Format is the only supported magic number: plain text PPM.
	Format = "P3"
	// MaxValue is the only supported maximum component value.
	MaxValue = 255
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrUnsupportedMaxValue = errors.New("unsupported max value")
	ErrMalformed           = errors.New("malformed ppm")
)

// tokenizer yields whitespace separated tokens, skipping # comments.
type tokenizer struct {
	scanner *bufio.Scanner
	fields  []string
	line    int
}

func newTokenizer(r io.Reader) *tokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &tokenizer{scanner: scanner}
}

func (t *tokenizer) next(what string) (string, error) {
	for len(t.fields) == 0 {
		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				return "", fmt.Errorf("read %s: %w", what, err)
			}
			return "", fmt.Errorf("%w: unexpected end of file reading %s", ErrMalformed, what)
		}
		t.line++
		line := t.scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		t.fields = strings.Fields(line)
	}
	token := t.fields[0]
	t.fields = t.fields[1:]
	return token, nil
}

func (t *tokenizer) int(what string) (int, error) {
	token, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not an integer", ErrMalformed, t.line, what, token)
	}
	return v, nil
}

// Decode reads a P3 image. Component values are clamped into [0..MaxValue].
func Decode(r io.Reader) (*Image, error) {
	t := newTokenizer(r)
	format, err := t.next("format")
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(format, Format) {
		return nil, fmt.Errorf("%w %q: only %q is supported", ErrUnsupportedFormat, format, Format)
	}
	width, err := t.int("width")
	if err != nil {
		return nil, err
	}
	height, err := t.int("height")
	if err != nil {
		return nil, err
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d image", ErrInvalidImage, width, height)
	}
	maxValue, err := t.int("max value")
	if err != nil {
		return nil, err
	}
	if maxValue != MaxValue {
		return nil, fmt.Errorf("%w %d: only [0..%d] color values are supported", ErrUnsupportedMaxValue, maxValue, MaxValue)
	}

	// The header is not trusted: rows grow as pixels are actually read.
	var rows []Row
	for y := 0; y < height; y++ {
		var row Row
		for x := 0; x < width; x++ {
			var c [3]int
			for i, name := range []string{"red", "green", "blue"} {
				if c[i], err = t.int(name); err != nil {
					return nil, fmt.Errorf("pixel (%d,%d): %w", x, y, err)
				}
			}
			row = append(row, NewPixel(c[0], c[1], c[2]))
		}
		rows = append(rows, row)
	}
	return NewImage(rows)
}

// Encode writes m as a P3 image, one pixel per line.
func Encode(w io.Writer, m *Image) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Format)
	fmt.Fprintf(bw, "%d %d\n", m.Width(), m.Height())
	fmt.Fprintf(bw, "%d\n", MaxValue)
	for _, r := range m.rows {
		for _, p := range r {
			fmt.Fprintf(bw, "%d %d %d\n", p.R, p.G, p.B)
		}
	}
	return bw.Flush()
}

// Load decodes the image stored in filename. Files ending with CompressedExt are zstd compressed.
func Load(filename string) (*Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filename, CompressedExt) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: zstd decode: %w", filename, err)
		}
		defer dec.Close()
		r = dec
	}
	m, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// Save encodes m into filename, replacing it. Files ending with CompressedExt are zstd compressed.
func Save(filename string, m *Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if !strings.HasSuffix(filename, CompressedExt) {
		return Encode(f, m)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	if err := Encode(enc, m); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
