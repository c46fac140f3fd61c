package model

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FileSize is a byte count that may be absent.
//
// Sizes are stored as INTEGER, but rows written by older clients may hold
// text ("2048", "", "n/a") because SQLite does not enforce column types.
// Scan is the ingestion boundary for that legacy data: anything that is not
// a non-negative integer reads as absent instead of failing the query.
type FileSize struct {
	Bytes int64
	Valid bool
}

// SizeOf returns a present FileSize.
func SizeOf(n int64) FileSize {
	if n < 0 {
		return FileSize{}
	}
	return FileSize{Bytes: n, Valid: true}
}

// ParseFileSize parses s. It never returns an error.
func ParseFileSize(s string) FileSize {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return FileSize{}
	}
	return SizeOf(n)
}

// Int64 returns the size, or 0 when absent.
func (s FileSize) Int64() int64 {
	if !s.Valid {
		return 0
	}
	return s.Bytes
}

// Scan implements sql.Scanner.
func (s *FileSize) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s = SizeOf(v)
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 {
			*s = FileSize{}
			return nil
		}
		*s = SizeOf(int64(v))
	case []byte:
		*s = ParseFileSize(string(v))
	case string:
		*s = ParseFileSize(v)
	default:
		*s = FileSize{}
	}
	return nil
}

// Value implements driver.Valuer.
func (s FileSize) Value() (driver.Value, error) {
	if !s.Valid {
		return nil, nil
	}
	return s.Bytes, nil
}

func (s FileSize) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Bytes)
}

func (s *FileSize) UnmarshalJSON(data []byte) error {
	var n *int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n == nil {
		*s = FileSize{}
		return nil
	}
	*s = SizeOf(*n)
	return nil
}

// StorageUsage is a user's consumed storage split by source.
type StorageUsage struct {
	Photos int64 `json:"photos_bytes"`
	Covers int64 `json:"covers_bytes"`
	Avatar int64 `json:"avatar_bytes"`
}

// Total is the sum of all three sources.
func (u StorageUsage) Total() int64 {
	return u.Photos + u.Covers + u.Avatar
}
