package models

import (
	"encoding/base64"
	"strconv"

	"github.com/fla-erp/ledger_backend/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PageInfo struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	HasNextPage *bool  `json:"hasNextPage,omitempty"`
}

func EncodeCursor(id int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

// DecodeCursor returns 0 for an absent cursor.
func DecodeCursor(cursor *string) (int, error) {
	if cursor == nil || *cursor == "" {
		return 0, nil
	}
	b, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return 0, utils.NewFieldValidationError("after", "malformed cursor")
	}
	id, err := strconv.Atoi(string(b))
	if err != nil || id <= 0 {
		return 0, utils.NewFieldValidationError("after", "malformed cursor")
	}
	return id, nil
}

func pageSize(limit *int) int {
	if limit == nil || *limit <= 0 {
		return defaultPageSize
	}
	if *limit > maxPageSize {
		return maxPageSize
	}
	return *limit
}
