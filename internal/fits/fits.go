// Package fits wraps the astrogo/fitsio library with the primitives the
// rest of mwabox needs: opening observation files, reading header keys
// with precise errors, and pulling image or table data out of HDUs.
//
// HDUs are addressed by zero-based index throughout, matching the FITS
// convention that HDU 0 is the primary HDU.
package fits

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

// File is an open FITS file. It is not safe for concurrent use; callers
// that read from multiple goroutines open one File per goroutine.
type File struct {
	name string
	raw  *os.File
	fits *fitsio.File
	hdus []fitsio.HDU
}

// Open opens the FITS file at path for reading.
func Open(path string) (*File, error) {
	raw, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Filename: path, Err: err}
	}
	f, err := fitsio.Open(raw)
	if err != nil {
		raw.Close()
		return nil, &OpenError{Filename: path, Err: err}
	}
	return &File{name: path, raw: raw, fits: f, hdus: f.HDUs()}, nil
}

// Close releases the file. The File must not be used afterwards.
func (f *File) Close() error {
	err := f.fits.Close()
	if cerr := f.raw.Close(); err == nil {
		err = cerr
	}
	return err
}

// Filename returns the path the file was opened with.
func (f *File) Filename() string { return f.name }

// NumHDUs returns the number of HDUs in the file, including the primary.
func (f *File) NumHDUs() int { return len(f.hdus) }

func (f *File) hdu(i int) (fitsio.HDU, error) {
	if i < 0 || i >= len(f.hdus) {
		return nil, &HDUError{Filename: f.name, HDU: i}
	}
	return f.hdus[i], nil
}

// Axes returns the NAXISn dimensions of the given HDU, fastest-varying
// axis first. A header-only HDU returns an empty slice.
func (f *File) Axes(hdu int) ([]int, error) {
	h, err := f.hdu(hdu)
	if err != nil {
		return nil, err
	}
	return h.Header().Axes(), nil
}

// HDUName returns the EXTNAME of the given HDU, or "" for unnamed HDUs.
func (f *File) HDUName(hdu int) (string, error) {
	h, err := f.hdu(hdu)
	if err != nil {
		return "", err
	}
	return h.Name(), nil
}

func (f *File) card(hdu int, key string) (*fitsio.Card, error) {
	h, err := f.hdu(hdu)
	if err != nil {
		return nil, err
	}
	card := h.Header().Get(key)
	if card == nil {
		return nil, &MissingKeyError{Key: key, Filename: f.name, HDU: hdu}
	}
	return card, nil
}

// IntKey reads an integer-valued header key from the given HDU.
func (f *File) IntKey(hdu int, key string) (int64, error) {
	card, err := f.card(hdu, key)
	if err != nil {
		return 0, err
	}
	v, ok := toInt64(card.Value)
	if !ok {
		return 0, &KeyTypeError{Key: key, Filename: f.name, HDU: hdu, Value: card.Value, Want: "int"}
	}
	return v, nil
}

// OptionalIntKey reads an integer-valued header key that may be absent.
// The boolean reports whether the key was present.
func (f *File) OptionalIntKey(hdu int, key string) (int64, bool, error) {
	v, err := f.IntKey(hdu, key)
	if err != nil {
		var missing *MissingKeyError
		if errors.As(err, &missing) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return v, true, nil
}

// FloatKey reads a floating-point header key from the given HDU.
// Integer-valued cards are accepted and widened.
func (f *File) FloatKey(hdu int, key string) (float64, error) {
	card, err := f.card(hdu, key)
	if err != nil {
		return 0, err
	}
	v, ok := toFloat64(card.Value)
	if !ok {
		return 0, &KeyTypeError{Key: key, Filename: f.name, HDU: hdu, Value: card.Value, Want: "float"}
	}
	return v, nil
}

// StringKey reads a string-valued header key from the given HDU.
// Leading and trailing whitespace is trimmed.
func (f *File) StringKey(hdu int, key string) (string, error) {
	card, err := f.card(hdu, key)
	if err != nil {
		return "", err
	}
	s, ok := card.Value.(string)
	if !ok {
		return "", &KeyTypeError{Key: key, Filename: f.name, HDU: hdu, Value: card.Value, Want: "string"}
	}
	return strings.TrimSpace(s), nil
}

// ImageFloat32 reads the full image data of an HDU as float32 values,
// in file order.
func (f *File) ImageFloat32(hdu int) ([]float32, error) {
	h, err := f.hdu(hdu)
	if err != nil {
		return nil, err
	}
	img, ok := h.(fitsio.Image)
	if !ok {
		return nil, &ReadError{Filename: f.name, HDU: hdu, Err: fmt.Errorf("HDU is not an image")}
	}
	// fitsio.Image.Read requires the destination slice to be preallocated
	// to the full image size.
	n := 1
	axes := h.Header().Axes()
	for _, dim := range axes {
		n *= dim
	}
	if len(axes) == 0 {
		n = 0
	}
	data := make([]float32, n)
	if err := img.Read(&data); err != nil {
		return nil, &ReadError{Filename: f.name, HDU: hdu, Err: err}
	}
	return data, nil
}

// Table provides access to a binary table HDU.
type Table struct {
	file *File
	hdu  int
	tbl  *fitsio.Table
}

// Table opens the binary table at the given HDU index.
func (f *File) Table(hdu int) (*Table, error) {
	h, err := f.hdu(hdu)
	if err != nil {
		return nil, err
	}
	tbl, ok := h.(*fitsio.Table)
	if !ok {
		return nil, &ReadError{Filename: f.name, HDU: hdu, Err: fmt.Errorf("HDU is not a table")}
	}
	return &Table{file: f, hdu: hdu, tbl: tbl}, nil
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int64 { return t.tbl.NumRows() }

// Rows returns an iterator over every row of the table. Row structs are
// scanned by `fits:"ColName"` field tags.
func (t *Table) Rows() (*Rows, error) {
	rows, err := t.tbl.Read(0, t.tbl.NumRows())
	if err != nil {
		return nil, &ReadError{Filename: t.file.name, HDU: t.hdu, Err: err}
	}
	return &Rows{file: t.file, hdu: t.hdu, rows: rows}, nil
}

// Rows iterates over the rows of a binary table.
type Rows struct {
	file *File
	hdu  int
	rows *fitsio.Rows
}

// Next advances to the next row. It returns false when no rows remain.
func (r *Rows) Next() bool { return r.rows.Next() }

// Scan decodes the current row into dst, which must be a pointer to a
// struct with `fits` field tags.
func (r *Rows) Scan(dst interface{}) error {
	if err := r.rows.Scan(dst); err != nil {
		return &ReadError{Filename: r.file.name, HDU: r.hdu, Err: err}
	}
	return nil
}

// Close releases the row iterator.
func (r *Rows) Close() error { return r.rows.Close() }

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float32:
		if float32(int64(x)) == x {
			return int64(x), true
		}
	case float64:
		if float64(int64(x)) == x {
			return int64(x), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
