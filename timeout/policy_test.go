// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"syscall"
	"testing"
	"time"

	"github.com/gofetch/requests/request"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	assert.Equal(t, Infinite, DefaultPolicy)
	a := DefaultPolicy.Timeout(&request.Execution{})
	assert.Equal(t, time.Duration(0), a)
}

func TestInfinite(t *testing.T) {
	a := Infinite.Timeout(&request.Execution{})
	assert.Equal(t, time.Duration(0), a)
	b := Infinite.Timeout(&request.Execution{Err: syscall.ETIMEDOUT})
	assert.Equal(t, time.Duration(0), b)
}

func TestFixed(t *testing.T) {
	p := Fixed(33 * time.Hour)
	a := p.Timeout(&request.Execution{})
	assert.Equal(t, 33*time.Hour, a)
	b := p.Timeout(&request.Execution{Err: syscall.ETIMEDOUT})
	assert.Equal(t, 33*time.Hour, b)
	c := Fixed(-1)
	assert.Equal(t, time.Duration(-1), c.Timeout(&request.Execution{}))
}
