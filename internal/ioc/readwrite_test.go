package ioc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pruneFixture = "testdata/378f0cce-b8df-41d5-8189-3d7ec102e52f.ioc"

func TestReadFile_Fixture(t *testing.T) {
	d, err := ReadFile(pruneFixture)
	require.NoError(t, err)

	assert.Equal(t, "378f0cce-b8df-41d5-8189-3d7ec102e52f", d.ID)
	assert.Equal(t, "2015-12-18T23:05:08Z", d.LastModified)
	assert.Equal(t, DefaultPublishedDate, d.PublishedDate)
	assert.Equal(t, "Prune", d.Metadata.ShortDescription)
	assert.Equal(t, "william.gibb@fireeye.com", d.Metadata.AuthoredBy)
	assert.Equal(t, []string{"Pruning test document"}, d.Preamble)
	assert.Equal(t, "utf-8", d.Encoding)
	assert.Equal(t, V11, d.Dialect)

	require.NotNil(t, d.Criteria)
	assert.Equal(t, "OR", d.Criteria.Operator)
	assert.Len(t, d.Criteria.Items(), 3)
	assert.Len(t, d.Criteria.Indicators(), 4)

	third := d.Criteria.Items()[2]
	assert.True(t, third.PreserveCase)
	assert.Equal(t, "GooD.eXE", third.Content.Value)

	require.Len(t, d.Parameters, 1)
	assert.Equal(t, Parameter{
		ID:    "5f3a0c1e-1111-4222-8333-444455556666",
		RefID: "e0d0b1b6-6e4f-4b83-9a8b-5a3ab8b2c001",
		Name:  "comment",
		Type:  "string",
		Value: "I am a comment!",
	}, d.Parameters[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want error
	}{
		{
			"wrong root",
			`<ioc id="x"><definition/></ioc>`,
			ErrNotOpenIOC,
		},
		{
			"no criteria",
			`<OpenIOC id="x"><metadata/></OpenIOC>`,
			ErrMissingCriteria,
		},
		{
			"no top level",
			`<OpenIOC id="x"><criteria/></OpenIOC>`,
			ErrMissingTopLevel,
		},
		{
			"foreign node",
			`<OpenIOC id="x"><criteria><Indicator id="r" operator="OR"><Bogus id="b"/></Indicator></criteria></OpenIOC>`,
			ErrMalformedNode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.xml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var serr *StructuralError
			assert.ErrorAs(t, err, &serr)
		})
	}
}

func TestParse_OperatorUpperCased(t *testing.T) {
	d, err := Parse([]byte(`<OpenIOC id="x"><criteria><Indicator id="r" operator="and"/></criteria></OpenIOC>`))
	require.NoError(t, err)
	assert.Equal(t, "AND", d.Criteria.Operator)
}

func TestMarshal_RoundTrip11(t *testing.T) {
	d, err := ReadFile(pruneFixture)
	require.NoError(t, err)

	data, err := Marshal(d)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestMarshal_RepairsOrderingOn11(t *testing.T) {
	d := New(WithDocumentID("doc"))
	d.Criteria = mustIndicator(t, "root", "OR",
		mustIndicator(t, "g", "AND", mustItem(t, "x", "is", "x")),
		mustItem(t, "a", "is", "a"),
	)

	data, err := Marshal(d)
	require.NoError(t, err)

	out := string(data)
	assert.Less(t, strings.Index(out, `id="a"`), strings.Index(out, `id="g"`))
	assert.True(t, Ordered(d.Criteria))
}

func TestMarshal_11Shape(t *testing.T) {
	d := New(WithDocumentID("doc"), WithName("Evil"))
	d.Criteria = mustIndicator(t, "root", "OR",
		mustItem(t, "a", "is", "evil.exe", WithNegate(true), WithPreserveCase(true)),
	)
	_, _, err := d.AddParameter("a", "note")
	require.NoError(t, err)
	require.NoError(t, d.AddLink("report", "APT1", "https://example.org/apt1"))

	data, err := Marshal(d)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, out, `<OpenIOC xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)
	assert.Contains(t, out, `xmlns="http://openioc.org/schemas/OpenIOC_1.1" id="doc"`)
	assert.Contains(t, out, `published-date="0001-01-01T00:00:00"`)
	assert.Contains(t, out, `condition="is" preserve-case="true" negate="true"`)
	assert.Contains(t, out, `<link rel="report" href="https://example.org/apt1">APT1</link>`)
	assert.Contains(t, out, `<param id="`)
	assert.Contains(t, out, `<value type="string">note</value>`)
	assert.Contains(t, out, `<short_description>Evil</short_description>`)
}

func TestMarshal_10Shape(t *testing.T) {
	d := New(WithDocumentID("doc"), WithName("Evil"))
	d.Dialect = V10
	item := mustItem(t, "a", "is", "evil.exe", WithNegate(true))
	item.Comment = "bad file"
	d.Criteria = mustIndicator(t, "root", "OR", item, mustItem(t, "b", "contains", "evil"))
	require.NoError(t, d.AddLink("report", "APT1", "https://example.org/apt1"))

	data, err := Marshal(d)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `<ioc xmlns:xsi=`)
	assert.Contains(t, out, `xmlns="http://schemas.mandiant.com/2010/ioc" id="doc"`)
	assert.NotContains(t, out, "published-date")
	assert.NotContains(t, out, "negate=")
	assert.NotContains(t, out, "preserve-case")
	assert.NotContains(t, out, "<metadata>")
	assert.NotContains(t, out, "<parameters")
	assert.NotContains(t, out, "href")
	assert.Contains(t, out, `<IndicatorItem id="a" condition="isnot">`)
	assert.Contains(t, out, `<IndicatorItem id="b" condition="contains">`)
	assert.Contains(t, out, `<Comment>bad file</Comment>`)
	assert.Contains(t, out, `<definition>`)
	assert.Contains(t, out, `<link rel="report">APT1</link>`)

	order := []string{"<short_description>", "<description>", "<keywords", "<authored_by>", "<authored_date>", "<links>", "<definition>"}
	last := -1
	for _, tag := range order {
		idx := strings.Index(out, tag)
		require.GreaterOrEqual(t, idx, 0, tag)
		assert.Greater(t, idx, last, tag)
		last = idx
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	d := New(WithDocumentID("doc-1"))

	path, err := WriteFile(d, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc-1.ioc"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", back.ID)
}

func TestWriteFile_RepairsCallerOrdering(t *testing.T) {
	d := New(WithDocumentID("doc-2"))
	d.Criteria = mustIndicator(t, "root", "OR",
		mustIndicator(t, "g", "AND", mustItem(t, "x", "is", "x")),
		mustItem(t, "a", "is", "a"),
	)

	_, err := WriteFile(d, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "g"}, childIDs(d.Criteria))
}

func TestLegacyCondition(t *testing.T) {
	assert.Equal(t, "isnot", LegacyCondition("is", true))
	assert.Equal(t, "contains", LegacyCondition("contains", false))

	cond, neg := SplitLegacyCondition("containsnot")
	assert.Equal(t, "contains", cond)
	assert.True(t, neg)

	cond, neg = SplitLegacyCondition("is")
	assert.Equal(t, "is", cond)
	assert.False(t, neg)

	cond, neg = SplitLegacyCondition("not")
	assert.Equal(t, "not", cond)
	assert.False(t, neg)
}
