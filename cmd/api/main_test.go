package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_splitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
}
