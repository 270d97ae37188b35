package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt decodes integers the registrar sends either as numbers or numeric strings.
type FlexInt int

// UnmarshalJSON accepts 3, "3" and null.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("flex int %q: %w", raw, err)
		}
		*f = FlexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("flex int %s: %w", n, err)
		}
		i = int64(fl)
	}
	*f = FlexInt(i)
	return nil
}

// Int returns the plain integer value.
func (f FlexInt) Int() int { return int(f) }

// Year is a batch boundary; the registrar sends 2021 or a date such as "2021-06-01".
type Year int

// UnmarshalJSON keeps only the year component.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(strings.SplitN(raw, "-", 2)[0])
		if raw == "" {
			*y = 0
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("year %q: %w", raw, err)
		}
		*y = Year(n)
		return nil
	}
	var f FlexInt
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*y = Year(f)
	return nil
}
