package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/iocwriter/internal/ioc"
	"github.com/ppiankov/iocwriter/internal/xmlutil"
)

func item(t *testing.T, id, condition string, opts ...ioc.NodeOption) *ioc.IndicatorItem {
	t.Helper()
	it, err := ioc.NewIndicatorItem(condition, "FileItem", "FileItem/FileName", "string", id+".exe", append(opts, ioc.WithID(id))...)
	require.NoError(t, err)
	return it
}

func group(t *testing.T, id, op string, children ...ioc.Node) *ioc.Indicator {
	t.Helper()
	ind, err := ioc.NewIndicator(op, ioc.WithID(id))
	require.NoError(t, err)
	ind.Append(children...)
	return ind
}

func docWith(t *testing.T, children ...ioc.Node) *ioc.Document {
	t.Helper()
	d := ioc.New(ioc.WithDocumentID("doc"), ioc.WithName("test"))
	d.Criteria = group(t, "top", "OR", children...)
	return d
}

func TestDowngrade_Clean(t *testing.T) {
	d := docWith(t,
		item(t, "a", "is"),
		group(t, "g", "AND", item(t, "b", "contains", ioc.WithNegate(true))),
	)

	res, err := Downgrade(d)

	require.NoError(t, err)
	assert.Equal(t, Clean, res.Classification)
	assert.Empty(t, res.Skipped)
	out := res.Document
	assert.Equal(t, ioc.V10, out.Dialect)
	assert.Equal(t, "top", out.Criteria.ID)
	require.Len(t, out.Criteria.Children, 2)
	b := out.Criteria.Children[1].(*ioc.Indicator).Children[0].(*ioc.IndicatorItem)
	assert.True(t, b.Negate)
	assert.Equal(t, "contains", b.Condition)
}

func TestDowngrade_MatchesOnlyIsNull(t *testing.T) {
	d := docWith(t, item(t, "m", "matches"))

	res, err := Downgrade(d)

	require.NoError(t, err)
	assert.Equal(t, Null, res.Classification)
	assert.Empty(t, res.Document.Criteria.Children)
	assert.Equal(t, []string{"m"}, res.Skipped)
}

func TestDowngrade_EveryBranchUnconvertibleIsNull(t *testing.T) {
	d := docWith(t,
		item(t, "p", "is", ioc.WithPreserveCase(true)),
		group(t, "g", "AND", item(t, "x", "is"), item(t, "y", "less-than")),
	)

	res, err := Downgrade(d)

	require.NoError(t, err)
	assert.Equal(t, Null, res.Classification)
	assert.ElementsMatch(t, []string{"p", "g"}, res.Skipped)
}

func TestDowngrade_PartialIsPruned(t *testing.T) {
	d := docWith(t,
		item(t, "keep", "is"),
		group(t, "g1", "AND",
			item(t, "fine", "contains"),
			group(t, "g2", "OR", item(t, "deep", "starts-with")),
		),
		group(t, "g3", "OR", item(t, "ok", "is")),
	)

	res, err := Downgrade(d)

	require.NoError(t, err)
	assert.Equal(t, Pruned, res.Classification)
	assert.Equal(t, []string{"g1"}, res.Skipped)

	var ids []string
	res.Document.Walk(func(n ioc.Node, _ int) bool {
		ids = append(ids, n.NodeID())
		return true
	})
	assert.Equal(t, []string{"top", "keep", "g3", "ok"}, ids, "whole branch g1 dropped, including convertible leaf")
}

func TestDowngrade_PruneFixture(t *testing.T) {
	src, err := ioc.ReadFile(pruneFixture)
	require.NoError(t, err)

	res, err := Downgrade(src)

	require.NoError(t, err)
	assert.Equal(t, Pruned, res.Classification)
	require.Len(t, res.Document.Criteria.Children, 1)
	md5 := res.Document.Criteria.Children[0].(*ioc.IndicatorItem)
	assert.Equal(t, "FileItem/Md5sum", md5.Context.Search)
	assert.Equal(t, "I am a comment!", md5.Comment)
	assert.Equal(t, []string{"Pruning test document"}, res.Document.Preamble)
}

func TestDowngrade_Metadata(t *testing.T) {
	d := docWith(t, item(t, "a", "is"))
	d.PublishedDate = "2016-01-01T00:00:00"
	require.NoError(t, d.AddLink("report", "R1", "https://example.org/r1"))
	_, _, err := d.AddParameter("top", "indicator note")
	require.NoError(t, err)
	_, _, err = d.AddParameter("a", "typed", ioc.WithParameterName("score"))
	require.NoError(t, err)

	res, err := Downgrade(d)

	require.NoError(t, err)
	out := res.Document
	assert.Empty(t, out.PublishedDate)
	assert.Empty(t, out.Parameters)
	assert.Equal(t, []ioc.Link{{Rel: "report", Text: "R1"}}, out.Metadata.Links)
	assert.Empty(t, out.Criteria.Children[0].(*ioc.IndicatorItem).Comment, "only comment params become inline comments")
	assert.Equal(t, "https://example.org/r1", d.Metadata.Links[0].Href, "source untouched")
	assert.Len(t, d.Parameters, 2, "source untouched")
}

func TestDowngrade_MissingAuthoredDate(t *testing.T) {
	d := docWith(t, item(t, "a", "is"))
	d.Metadata.AuthoredDate = ""

	_, err := Downgrade(d)

	require.Error(t, err)
	assert.ErrorIs(t, err, ioc.ErrMissingRequiredMetadata)
	var derr *DowngradeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "doc", derr.ID)
}

func TestDowngrade_MalformedOperator(t *testing.T) {
	d := docWith(t, &ioc.Indicator{ID: "bad", Operator: "XOR"})

	_, err := Downgrade(d)

	assert.ErrorIs(t, err, ioc.ErrMalformedOperator)
	var derr *DowngradeError
	assert.ErrorAs(t, err, &derr)
}

func TestDowngrade_NilNode(t *testing.T) {
	d := docWith(t)
	d.Criteria.Children = append(d.Criteria.Children, nil)

	_, err := Downgrade(d)

	assert.ErrorIs(t, err, ioc.ErrMalformedNode)
}

func TestDowngrade_MissingCriteria(t *testing.T) {
	d := ioc.New()
	d.Criteria = nil

	_, err := Downgrade(d)

	assert.ErrorIs(t, err, ioc.ErrMissingTopLevel)
}

func TestRoundTrip_PreservesConvertibleStructure(t *testing.T) {
	raw, err := xmlutil.ReadFile(legacyFixture)
	require.NoError(t, err)
	upgraded, err := Upgrade(raw)
	require.NoError(t, err)

	res, err := Downgrade(upgraded)
	require.NoError(t, err)
	assert.Equal(t, Clean, res.Classification)

	data, err := ioc.Marshal(res.Document)
	require.NoError(t, err)
	reparsed, err := xmlutil.Parse(data)
	require.NoError(t, err)
	again, err := Upgrade(reparsed)
	require.NoError(t, err)

	assert.Equal(t, upgraded.Criteria, again.Criteria)
	assert.Equal(t, upgraded.Metadata, again.Metadata)
	require.Len(t, again.Parameters, 1)
	assert.Equal(t, upgraded.Parameters[0].RefID, again.Parameters[0].RefID)
	assert.Equal(t, upgraded.Parameters[0].Value, again.Parameters[0].Value)
}
