package voter

import "errors"

// Fatal errors abort a run, the others are recovered per name or per detail page.
var (
	ErrAuth       = errors.New("authentication failed")
	ErrNavigation = errors.New("portal navigation failed")
	ErrParse      = errors.New("portal page not recognized")
	ErrSheetRead  = errors.New("spreadsheet read failed")
	ErrSheetWrite = errors.New("spreadsheet write failed")
	ErrValidation = errors.New("invalid configuration")
)

// IsRecoverable reports whether err only affects the current query.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNavigation) || errors.Is(err, ErrParse)
}
