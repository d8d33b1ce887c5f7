package fits

import "fmt"

// OpenError reports a FITS file that could not be opened or parsed.
type OpenError struct {
	Filename string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open FITS file %s: %v", e.Filename, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// HDUError reports a request for an HDU that does not exist in a file.
type HDUError struct {
	Filename string
	HDU      int
}

func (e *HDUError) Error() string {
	return fmt.Sprintf("HDU %d does not exist in %s", e.HDU, e.Filename)
}

// MissingKeyError reports a header key that was not present in an HDU.
type MissingKeyError struct {
	Key      string
	Filename string
	HDU      int
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("key %s not found in HDU %d of %s", e.Key, e.HDU, e.Filename)
}

// KeyTypeError reports a header key whose value could not be converted
// to the requested Go type.
type KeyTypeError struct {
	Key      string
	Filename string
	HDU      int
	Value    interface{}
	Want     string
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("key %s in HDU %d of %s has value %v (%T), want %s",
		e.Key, e.HDU, e.Filename, e.Value, e.Value, e.Want)
}

// ReadError reports a failure reading image or table data out of an HDU.
type ReadError struct {
	Filename string
	HDU      int
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read data from HDU %d of %s: %v", e.HDU, e.Filename, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
