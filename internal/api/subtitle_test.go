package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

func TestJSONToSRT(t *testing.T) {
	doc := []byte(`{"body":[
		{"from":0,"to":2.5,"content":"first line"},
		{"from":61.25,"to":63,"content":"second line"}
	]}`)

	out, err := api.JSONToSRT(doc)
	require.NoError(t, err)

	want := "1\n" +
		"00:00:00,000 --> 00:00:02,500\n" +
		"first line\n\n" +
		"2\n" +
		"00:01:01,250 --> 00:01:03,000\n" +
		"second line\n\n"
	assert.Equal(t, want, string(out))
}

func TestJSONToSRT_Invalid(t *testing.T) {
	_, err := api.JSONToSRT([]byte("not json"))
	assert.Error(t, err)
}

func TestJSONToSRT_Empty(t *testing.T) {
	out, err := api.JSONToSRT([]byte(`{"body":[]}`))
	require.NoError(t, err)
	assert.Empty(t, string(out))
}
