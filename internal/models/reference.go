package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Department is reference data; the registrar sends either {"id","name"} or a bare name.
type Department struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts an object or a plain string.
func (d *Department) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Department{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*d = Department{Name: name}
		return nil
	}
	if len(data) > 0 && data[0] != '{' {
		var id FlexInt
		if err := id.UnmarshalJSON(data); err != nil {
			return err
		}
		*d = Department{ID: id.Int()}
		return nil
	}
	type plain Department
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Department(p)
	return nil
}

// Program groups courses of a department; Duration is in years.
type Program struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Duration   int         `json:"duration,omitempty"`
	Department *Department `json:"department,omitempty"`
}

// Semesters returns the number of semesters the program spans.
func (p Program) Semesters() int {
	return p.Duration * 2
}

// Batch is a cohort identified by its admission year range.
type Batch struct {
	ID    int  `json:"id,omitempty"`
	Start Year `json:"start"`
	End   Year `json:"end"`
}

// Label renders the batch as "start-end".
func (b Batch) Label() string {
	return fmt.Sprintf("%d-%d", b.Start, b.End)
}

// ParseBatchLabel parses "2021-2025" (spaces tolerated) into a Batch.
func ParseBatchLabel(label string) (Batch, error) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return Batch{}, fmt.Errorf("batch %q: expected start-end", label)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Batch{}, fmt.Errorf("batch %q: %w", label, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Batch{}, fmt.Errorf("batch %q: %w", label, err)
	}
	return Batch{Start: Year(start), End: Year(end)}, nil
}
