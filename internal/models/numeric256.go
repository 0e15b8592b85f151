package models

import (
	"database/sql/driver"
	"fmt"
	"math/big"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Numeric256 is an unsigned integer up to 256 bits, stored as
// DECIMAL(78,0) and serialized to JSON/the wire as a decimal string
// with no leading zeros. It wraps *big.Int so gorm and encoding/json
// never see a float or a 64-bit integer for amounts or on-chain ids.
type Numeric256 struct {
	*big.Int
}

// NewNumeric256 wraps v, treating a nil v as zero.
func NewNumeric256(v *big.Int) Numeric256 {
	if v == nil {
		return Numeric256{big.NewInt(0)}
	}
	return Numeric256{v}
}

// ParseNumeric256 parses a decimal string (no leading zeros required
// on input, none emitted on output).
func ParseNumeric256(s string) (Numeric256, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Numeric256{}, fmt.Errorf("invalid decimal integer: %q", s)
	}
	if v.Sign() < 0 {
		return Numeric256{}, fmt.Errorf("negative value not allowed: %q", s)
	}
	return Numeric256{v}, nil
}

func (n Numeric256) String() string {
	if n.Int == nil {
		return "0"
	}
	return n.Int.String()
}

// MarshalJSON emits the decimal string form required by §4.5.
func (n Numeric256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (n *Numeric256) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := ParseNumeric256(s)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// Value implements driver.Valuer for gorm/database/sql.
func (n Numeric256) Value() (driver.Value, error) {
	return n.String(), nil
}

// Scan implements sql.Scanner for gorm/database/sql.
func (n *Numeric256) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*n = NewNumeric256(nil)
		return nil
	case string:
		parsed, err := ParseNumeric256(v)
		if err != nil {
			return err
		}
		*n = parsed
		return nil
	case []byte:
		parsed, err := ParseNumeric256(string(v))
		if err != nil {
			return err
		}
		*n = parsed
		return nil
	case int64:
		*n = NewNumeric256(big.NewInt(v))
		return nil
	default:
		return fmt.Errorf("unsupported Numeric256 source type %T", src)
	}
}

// GormDataType tells gorm's migrator which SQL column type to use.
func (Numeric256) GormDataType() string {
	return "numeric"
}

func (Numeric256) GormDBDataType(_ *gorm.DB, _ *schema.Field) string {
	return "DECIMAL(78,0)"
}

// Equal compares two Numeric256 values numerically.
func (n Numeric256) Equal(other Numeric256) bool {
	if n.Int == nil || other.Int == nil {
		return n.String() == other.String()
	}
	return n.Int.Cmp(other.Int) == 0
}

// IsZero reports whether the value is zero (or unset).
func (n Numeric256) IsZero() bool {
	return n.Int == nil || n.Int.Sign() == 0
}

// IsPositive reports whether the value is strictly greater than zero.
func (n Numeric256) IsPositive() bool {
	return n.Int != nil && n.Int.Sign() > 0
}

// Add returns n + other as a new Numeric256.
func (n Numeric256) Add(other Numeric256) Numeric256 {
	a := n.Int
	if a == nil {
		a = big.NewInt(0)
	}
	b := other.Int
	if b == nil {
		b = big.NewInt(0)
	}
	return Numeric256{new(big.Int).Add(a, b)}
}
