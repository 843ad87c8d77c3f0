// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToPgx5DSN(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/vidshare":   "pgx5://u:p@db:5432/vidshare",
		"postgresql://u:p@db:5432/vidshare": "pgx5://u:p@db:5432/vidshare",
		"pgx5://u:p@db:5432/vidshare":       "pgx5://u:p@db:5432/vidshare",
		"host=db user=u":                    "host=db user=u",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, convertToPgx5DSN(input), input)
	}
}
