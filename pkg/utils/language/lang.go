// package language wraps x/text/language for request localization and
// for storage through database/sql and pgx.
package language

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
)

type Tag language.Tag

// English is the default. Like counts are only parsed in English notation.
var English = Tag(language.AmericanEnglish)

// Parse parses a BCP 47 tag. Empty input is English.
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return English, nil
	}
	t, err := language.Parse(s)
	if err != nil {
		return Tag(language.Und), fmt.Errorf("parse language %q: %w", s, err)
	}
	return Tag(t), nil
}

func (t Tag) String() string { return language.Tag(t).String() }

// HL returns the base language code YouTube expects in its hl parameter.
func (t Tag) HL() string {
	base, _ := language.Tag(t).Base()
	return base.String()
}

// GL returns the region code, or "" when the tag has none.
func (t Tag) GL() string {
	region, conf := language.Tag(t).Region()
	if conf == language.No {
		return ""
	}
	return region.String()
}

// AcceptLanguage renders an Accept-Language header preferring t, then its
// base language.
func (t Tag) AcceptLanguage() string {
	full, base := t.String(), t.HL()
	if full == base {
		return full
	}
	return full + "," + base + ";q=0.9"
}

// Scan implements the sql.Scanner interface.
func (t *Tag) Scan(value any) error {
	if value == nil {
		*t = Tag(language.Und)
		return nil
	}

	tag, ok := value.(string)
	if !ok {
		return fmt.Errorf("language.Tag.Scan: expected string, got %T", value)
	}

	parsedTag, err := language.Parse(tag)
	if err != nil {
		return err
	}
	*t = Tag(parsedTag)
	return nil
}

// Value implements the driver.Valuer interface.
func (t Tag) Value() (driver.Value, error) {
	if t == Tag(language.Und) {
		return nil, nil
	}
	return t.String(), nil
}

// TextValue implements the pgtype.TextValuer interface for pgx v5.
func (t Tag) TextValue() (pgtype.Text, error) {
	if t == Tag(language.Und) {
		return pgtype.Text{Valid: false}, nil
	}
	return pgtype.Text{String: t.String(), Valid: true}, nil
}
