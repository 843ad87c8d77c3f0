// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/vidshare/pkg/uuid"
)

func TestNew_IsSortableV7(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	assert.True(t, uuid.IsValid(first))
	assert.Equal(t, byte('7'), first[14])
	assert.NotEqual(t, first, second)
}

func TestIsValid(t *testing.T) {
	assert.True(t, uuid.IsValid("0190a5b2-1c3d-7e4f-8a9b-0c1d2e3f4a5b"))
	assert.False(t, uuid.IsValid(""))
	assert.False(t, uuid.IsValid("not-a-uuid"))
	assert.False(t, uuid.IsValid("{0190a5b2-1c3d-7e4f-8a9b-0c1d2e3f4a5b}"))
}
