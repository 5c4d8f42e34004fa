package ioc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pruneHeader = `Name: Prune
ID: 378f0cce-b8df-41d5-8189-3d7ec102e52f
Created: 2015-12-18T18:47:14Z
Updated: 2015-12-18T23:05:08Z

Author: william.gibb@fireeye.com
Description:
Pruned indicators will result

IOC Links

Criteria:
`

const pruneCriteria = `OR
  FileItem/Md5sum is "23456789abcdef0123456789abcdef01"
  FileItem/FileName matches "foo|duck.exe"
  FileItem/FileName is "GooD.eXE" (Preserve Case)
  AND
    FileItem/SizeInBytes greater-than "1000"
    FileItem/FileName contains "foo"
  AND
    FileItem/FileName contains "bar"
    FileItem/SizeInBytes less-than "1000"
  AND
    FileItem/FileName contains "duck"
    FileItem/FilePath ends-with "temp"
  AND
    FileItem/FileName contains "quack"
    FileItem/FilePath starts-with "windows"
`

func TestDisplay_New(t *testing.T) {
	s := New().String()

	assert.Contains(t, s, "Name: \nID: ")
	assert.Contains(t, s, "IOC_api")
	assert.Contains(t, s, "Description:\nAutomatically generated IOC")
	assert.Contains(t, s, "Criteria:\nOR\n")
}

func TestDisplay_Existing(t *testing.T) {
	d, err := ReadFile(pruneFixture)
	require.NoError(t, err)

	assert.Equal(t, pruneHeader+pruneCriteria, d.String())
}

func TestDisplay_Params(t *testing.T) {
	d, err := ReadFile(pruneFixture)
	require.NoError(t, err)

	want := pruneHeader + strings.Replace(pruneCriteria,
		"OR\n",
		"OR\n  Parameter: comment, type:string, value: I am a comment!\n", 1)

	assert.Equal(t, want, Display(d, DisplayOptions{Params: true}))
}

func TestDisplay_Separator(t *testing.T) {
	d, err := ReadFile(pruneFixture)
	require.NoError(t, err)

	got := Display(d, DisplayOptions{Params: true, Separator: "XX"})

	assert.Contains(t, got, "\nXXParameter: comment, type:string, value: I am a comment!\n")
	assert.Contains(t, got, "\nXXAND\nXXXXFileItem/SizeInBytes greater-than \"1000\"\n")
	assert.True(t, strings.HasSuffix(got, "XXXXFileItem/FilePath starts-with \"windows\"\n"))
}

func TestDisplay_NegatedAndLinks(t *testing.T) {
	d := New(WithName("Evil"))
	d.Criteria.Append(mustItem(t, "a", "is", "evil.exe", WithNegate(true)))
	require.NoError(t, d.AddLink("report", "APT1", "https://example.org/apt1"))

	s := d.String()

	assert.Contains(t, s, "IOC Links\nreport: APT1 (https://example.org/apt1)\n\nCriteria:")
	assert.Contains(t, s, "  FileItem/FileName is \"evil.exe\" (Negated)\n")
}
