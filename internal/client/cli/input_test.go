package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  Ama Mensah \n"), "Name", &out)
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", got)
	assert.Equal(t, "Name\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name", &out)
	require.Error(t, err)
}

func TestGetToken(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte(" tok.en.sig \n"), nil }
	var out bytes.Buffer
	got, err := GetToken(&out)
	require.NoError(t, err)
	assert.Equal(t, "tok.en.sig", got)

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetToken(&out)
	require.Error(t, err)
}

func TestGetPairs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Unix newlines, stop on empty line", "chest=96\nwaist=80\n\n", []string{"chest=96", "waist=80"}},
		{"Windows CRLF, stop on empty line", "chest=96\r\nwaist=80\r\n\r\n", []string{"chest=96", "waist=80"}},
		{"Immediate blank line gives empty slice", "\n", []string{}},
		{"EOF without trailing blank line", "chest=96\nwaist=80", []string{"chest=96", "waist=80"}},
		{"Spaces are preserved", " neck = 38 \n\n", []string{" neck = 38 "}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetPairs(rdr(tc.input), "Measurements", &out)
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}
