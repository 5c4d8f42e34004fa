package ioc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndicator(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		want     string
		wantErr  bool
	}{
		{"upper and", "AND", "AND", false},
		{"lower or", "or", "OR", false},
		{"mixed case", "aNd", "AND", false},
		{"xor rejected", "XOR", "", true},
		{"empty rejected", "", "", true},
		{"padded rejected", " OR", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind, err := NewIndicator(tt.operator)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidOperator))
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr))
				assert.Equal(t, "operator", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ind.Operator)
			assert.NotEmpty(t, ind.ID)
		})
	}
}

func TestNewIndicator_WithID(t *testing.T) {
	ind, err := NewIndicator("OR", WithID("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", ind.ID)
}

func TestNewIndicator_FreshIDs(t *testing.T) {
	a, err := NewIndicator("OR")
	require.NoError(t, err)
	b, err := NewIndicator("OR")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewIndicatorItem_Conditions(t *testing.T) {
	for _, c := range V11.Conditions() {
		_, err := NewIndicatorItem(c, "FileItem", "FileItem/FileName", "string", "x")
		assert.NoError(t, err, c)
	}

	for _, c := range []string{"matches", "starts-with", "ends-with", "greater-than", "less-than"} {
		_, err := NewIndicatorItem(c, "FileItem", "FileItem/FileName", "string", "x", ForDialect(V10))
		assert.ErrorIs(t, err, ErrInvalidCondition, c)
	}

	for _, c := range []string{"is", "contains"} {
		_, err := NewIndicatorItem(c, "FileItem", "FileItem/FileName", "string", "x", ForDialect(V10))
		assert.NoError(t, err, c)
	}

	for _, c := range []string{"foobarbaz", "IS", "isnot", ""} {
		_, err := NewIndicatorItem(c, "FileItem", "FileItem/FileName", "string", "x")
		assert.ErrorIs(t, err, ErrInvalidCondition, c)
	}
}

func TestNewIndicatorItem_Fields(t *testing.T) {
	it, err := NewIndicatorItem("is", "FileItem", "FileItem/FileName", "string", "evil.exe",
		WithNegate(true), WithPreserveCase(true), WithID("item-1"))
	require.NoError(t, err)

	assert.Equal(t, "item-1", it.ID)
	assert.Equal(t, "is", it.Condition)
	assert.True(t, it.Negate)
	assert.True(t, it.PreserveCase)
	assert.Equal(t, Context{Document: "FileItem", Search: "FileItem/FileName", Type: "mir"}, it.Context)
	assert.Equal(t, Content{Type: "string", Value: "evil.exe"}, it.Content)
}

func TestNewIndicatorItem_ContextType(t *testing.T) {
	it, err := NewIndicatorItem("contains", "Network", "Network/DNS", "string", "example.org", WithContextType("iocterms"))
	require.NoError(t, err)
	assert.Equal(t, "iocterms", it.Context.Type)
}

func TestNew_Skeleton(t *testing.T) {
	d := New()

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, DefaultDescription, d.Metadata.Description)
	assert.Equal(t, DefaultAuthor, d.Metadata.AuthoredBy)
	assert.Empty(t, d.Metadata.ShortDescription)
	assert.Empty(t, d.Metadata.Keywords)
	assert.Equal(t, DefaultPublishedDate, d.PublishedDate)
	assert.Regexp(t, dateRegex, d.LastModified)
	require.NotNil(t, d.Criteria)
	assert.Equal(t, OperatorOr, d.Criteria.Operator)
	assert.Empty(t, d.Criteria.Children)
	assert.Equal(t, V11, d.Dialect)
}

func TestNew_Options(t *testing.T) {
	d := New(
		WithDocumentID("doc-1"),
		WithName("Evil"),
		WithDescription("desc"),
		WithAuthor("analyst"),
		WithKeywords("apt malware"),
		WithLinks(Link{Rel: "report", Text: "r1"}),
	)

	assert.Equal(t, "doc-1", d.ID)
	assert.Equal(t, "Evil", d.Metadata.ShortDescription)
	assert.Equal(t, "desc", d.Metadata.Description)
	assert.Equal(t, "analyst", d.Metadata.AuthoredBy)
	assert.Equal(t, "apt malware", d.Metadata.Keywords)
	assert.Equal(t, []Link{{Rel: "report", Text: "r1"}}, d.Metadata.Links)
}
