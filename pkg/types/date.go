package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout формат календарной даты (YYYY-MM-DD)
const DateLayout = "2006-01-02"

var (
	// ErrInvalidDateFormat возвращается, если строка не соответствует формату YYYY-MM-DD
	ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD")

	// ErrUnsupportedScanType возвращается при сканировании значения неподдерживаемого типа
	ErrUnsupportedScanType = errors.New("unsupported scan type for Date")
)

// Date календарная дата без времени и часового пояса
// Внутри хранится как полночь UTC, поэтому сравнение дат корректно
type Date struct {
	t time.Time
}

// NewDate создает дату из года, месяца и дня
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf отбрасывает время и часовой пояс, оставляя только календарную дату
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate парсит дату из строки формата YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return DateOf(t), nil
}

// MustParseDate как ParseDate, но паникует при ошибке. Только для тестов и констант
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero возвращает true, если дата не задана
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time возвращает дату как time.Time (полночь UTC)
func (d Date) Time() time.Time {
	return d.t
}

// String возвращает дату в формате YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Before возвращает true, если d строго раньше other
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// After возвращает true, если d строго позже other
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Equal возвращает true, если даты совпадают
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// AddDays возвращает дату, сдвинутую на n дней
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil количество дней от d до other (может быть отрицательным)
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// MarshalJSON сериализует дату как строку "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON парсит дату из строки "YYYY-MM-DD"
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDateFormat, err)
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// Value реализует driver.Valuer. Дата передается в БД строкой YYYY-MM-DD,
// Postgres сам приводит её к типу DATE колонки
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan реализует sql.Scanner
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedScanType, src)
	}
}

func (d *Date) scanString(s string) error {
	// Postgres может вернуть дату с временем, если колонка timestamp
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
