package historydb

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringArray stores a small ordered list of strings as a JSON array
// column, so sqlite (the only driver this ledger ever targets) doesn't
// need a join table for something as small as "which platforms were
// touched by this publication".
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("historydb: StringArray: unsupported scan type")
	}
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType hints the column type during AutoMigrate.
func (StringArray) GormDataType() string {
	return "text"
}
