package aliases

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/finquery/internal/models"
)

// validate caches struct metadata; it is safe for concurrent use.
var validate = validator.New()

// ValidateUniverse checks field-level constraints on every record and
// override. Cross-record rules (duplicates, unknown override tickers) are
// enforced by Build.
func ValidateUniverse(u *models.Universe) error {
	for i := range u.Records {
		if err := validate.Struct(&u.Records[i]); err != nil {
			return fmt.Errorf("universe record %d (%q): %w", i, u.Records[i].Ticker, err)
		}
	}
	for i := range u.Overrides {
		if err := validate.Struct(&u.Overrides[i]); err != nil {
			return fmt.Errorf("override %d (%q): %w", i, u.Overrides[i].Phrase, err)
		}
	}
	return nil
}
