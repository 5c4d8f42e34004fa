package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/iocwriter/internal/cache"
	"github.com/ppiankov/iocwriter/internal/convert"
	"github.com/ppiankov/iocwriter/internal/ioc"
)

// loadMixed returns a manager holding one clean, one pruned, one null and
// one unconvertible document.
func loadMixed(t *testing.T, opts ...Option) *DowngradeManager {
	t.Helper()
	in := t.TempDir()
	writeDoc(t, docWithItem(t, "clean", "clean", "is"), in, "clean.ioc")
	writeDoc(t, docWithItem(t, "null", "null", "matches"), in, "null.ioc")
	noDate := docWithItem(t, "nodate", "nodate", "is")
	noDate.Metadata.AuthoredDate = ""
	writeDoc(t, noDate, in, "nodate.ioc")
	copyFixture(t, pruneFixture, in, "prune.ioc")

	m := NewDowngradeManager(append([]Option{quiet()}, opts...)...)
	res, err := m.Insert(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 4, res.Loaded)
	return m
}

func TestDowngradeManager_Buckets(t *testing.T) {
	m := loadMixed(t)

	errs := m.ConvertTo10()

	require.Len(t, errs, 1)
	assert.Equal(t, "nodate", errs[0].ID)
	assert.ErrorIs(t, errs[0], ioc.ErrMissingRequiredMetadata)
	assert.Equal(t, []string{pruneID}, m.Pruned())
	assert.Equal(t, []string{"null"}, m.Null())

	c, ok := m.Result(pruneID)
	require.True(t, ok)
	assert.Equal(t, convert.Pruned, c.Classification)
	assert.NotEmpty(t, c.Skipped)
}

func TestDowngradeManager_Write(t *testing.T) {
	m := loadMixed(t)
	m.ConvertTo10()
	out := t.TempDir()

	n, err := m.WriteIOCs(filepath.Join(out, "unpruned"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(out, "unpruned", "clean.ioc"))
	assert.NoFileExists(t, filepath.Join(out, "unpruned", pruneID+".ioc"))

	n, err = m.WritePruned(filepath.Join(out, "pruned"), m.Pruned())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.WritePruned(filepath.Join(out, "null"), m.Null())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(out, "pruned", pruneID+".ioc"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<ioc ")
	assert.Contains(t, string(data), "<Comment>I am a comment!</Comment>")
	assert.NotContains(t, string(data), "published-date")
}

func TestDowngradeManager_WritePrunedUnknown(t *testing.T) {
	m := loadMixed(t)
	m.ConvertTo10()

	_, err := m.WritePruned(t.TempDir(), []string{"nodate"})

	assert.ErrorIs(t, err, ErrNotConverted)
}

func TestDowngradeManager_CacheKeepsClassification(t *testing.T) {
	shared := cache.NewLayeredCache(time.Minute, filepath.Join(t.TempDir(), "cache"), time.Hour)

	first := loadMixed(t, WithCache(shared))
	first.ConvertTo10()

	second := loadMixed(t, WithCache(shared))
	second.ConvertTo10()

	c, ok := second.Result(pruneID)
	require.True(t, ok)
	assert.True(t, c.Cached)
	assert.Equal(t, first.Pruned(), second.Pruned())
	assert.Equal(t, first.Null(), second.Null())
}

// partialDir writes one document "p1" with an is leaf and a matches leaf
// "m1" and returns its directory.
func partialDir(t *testing.T) string {
	t.Helper()
	d := docWithItem(t, "p1", "partial", "is")
	it, err := ioc.NewIndicatorItem("matches", "FileItem", "FileItem/FileName", "string", "foo|bar.exe", ioc.WithID("m1"))
	require.NoError(t, err)
	d.Criteria.Append(it)
	in := t.TempDir()
	writeDoc(t, d, in, "p1.ioc")
	return in
}

func loadPartial(t *testing.T, opts ...Option) *DowngradeManager {
	t.Helper()
	m := NewDowngradeManager(append([]Option{quiet()}, opts...)...)
	_, err := m.Insert(context.Background(), partialDir(t))
	require.NoError(t, err)
	return m
}

func TestDowngradeManager_ReconvertAfterFix(t *testing.T) {
	m := loadPartial(t)
	require.Empty(t, m.ConvertTo10())
	require.Equal(t, []string{"p1"}, m.Pruned())

	doc, ok := m.Document("p1")
	require.True(t, ok)
	removed, err := doc.RemoveNode("m1", false)
	require.NoError(t, err)
	require.True(t, removed)

	require.Empty(t, m.ConvertTo10())

	assert.Empty(t, m.Pruned())
	assert.Empty(t, m.Null())
	c, ok := m.Result("p1")
	require.True(t, ok)
	assert.Equal(t, convert.Clean, c.Classification)

	out := t.TempDir()
	n, err := m.WriteIOCs(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(out, "p1.ioc"))
}

func TestDowngradeManager_ReconvertDropsFailedResult(t *testing.T) {
	m := loadPartial(t)
	require.Empty(t, m.ConvertTo10())

	doc, _ := m.Document("p1")
	doc.Metadata.AuthoredDate = ""
	errs := m.ConvertTo10()

	require.Len(t, errs, 1)
	_, ok := m.Result("p1")
	assert.False(t, ok)
	assert.Empty(t, m.Pruned())
}

func TestDowngradeManager_CacheFollowsMutation(t *testing.T) {
	m := loadPartial(t, WithCache(cache.NewLayeredCache(time.Minute, "", 0)))
	require.Empty(t, m.ConvertTo10())

	doc, _ := m.Document("p1")
	_, err := doc.RemoveNode("m1", false)
	require.NoError(t, err)
	require.Empty(t, m.ConvertTo10())

	c, ok := m.Result("p1")
	require.True(t, ok)
	assert.False(t, c.Cached)
	assert.Equal(t, convert.Clean, c.Classification)

	require.Empty(t, m.ConvertTo10())
	c, _ = m.Result("p1")
	assert.True(t, c.Cached, "unchanged document is served from cache")
}

func TestDowngradeManager_ParserCallbackChangesKey(t *testing.T) {
	shared := cache.NewLayeredCache(time.Minute, "", 0)
	in := partialDir(t)

	first := NewDowngradeManager(quiet(), WithCache(shared))
	_, err := first.Insert(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, first.ConvertTo10())
	require.Equal(t, []string{"p1"}, first.Pruned())

	second := NewDowngradeManager(quiet(), WithCache(shared))
	second.RegisterParserCallback(func(d *ioc.Document) {
		_, _ = d.RemoveNode("m1", false)
	})
	_, err = second.Insert(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, second.ConvertTo10())

	c, ok := second.Result("p1")
	require.True(t, ok)
	assert.False(t, c.Cached)
	assert.Equal(t, convert.Clean, c.Classification)
	assert.Empty(t, second.Pruned())
}
