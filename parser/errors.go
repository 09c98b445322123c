package parser

import "errors"

// Error taxonomy shared by all parsers. Parsers wrap these sentinels with
// fmt.Errorf("%w: ...") so callers can match kinds with errors.Is while
// still seeing the original failure message.
var (
	// ErrUnsupportedFormat is returned by the registry for unknown file
	// type tokens.
	ErrUnsupportedFormat = errors.New("parser: unsupported document format")

	// ErrValidation is returned when a signature or structural pre-check
	// fails. Retrying with the same input will not succeed.
	ErrValidation = errors.New("parser: validation failed")

	// ErrEncoding is returned for undecodable byte sequences in text
	// documents, distinct from generic parse failure so callers can react
	// (for example by prompting for a re-upload).
	ErrEncoding = errors.New("parser: encoding error")

	// ErrDamaged is returned when a PDF container cannot be read.
	ErrDamaged = errors.New("parser: damaged document")

	// ErrCorrupted is returned when a DOCX/XLSX package cannot be opened.
	ErrCorrupted = errors.New("parser: corrupted document")

	// ErrEncrypted is returned for encrypted PDFs. No decryption is
	// attempted, not even with an empty password.
	ErrEncrypted = errors.New("parser: encrypted document")

	// ErrParsing is the catch-all for any other parse failure.
	ErrParsing = errors.New("parser: parsing failed")
)
