package ioc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkValidate(t *testing.T) {
	tests := []struct {
		name    string
		link    Link
		wantErr bool
	}{
		{"text only", Link{Rel: "report", Text: "APT1"}, false},
		{"href only", Link{Rel: "report", Href: "https://example.org/r"}, false},
		{"both", Link{Rel: "report", Text: "APT1", Href: "https://example.org/r"}, false},
		{"missing rel", Link{Text: "APT1"}, true},
		{"rel only", Link{Rel: "report"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.link.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLink)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddLink(t *testing.T) {
	d := New()

	require.NoError(t, d.AddLink("report", "APT1", ""))
	assert.ErrorIs(t, d.AddLink("", "x", ""), ErrInvalidLink)

	assert.Equal(t, []Link{{Rel: "report", Text: "APT1"}}, d.Metadata.Links)
}

func linkedDocument(t *testing.T) *Document {
	t.Helper()
	d := New()
	require.NoError(t, d.AddLink("grade", "alpha", ""))
	require.NoError(t, d.AddLink("grade", "beta", "https://example.org/b"))
	require.NoError(t, d.AddLink("report", "alpha", ""))
	return d
}

func TestUpdateLinkRel(t *testing.T) {
	d := linkedDocument(t)

	assert.Equal(t, 0, d.UpdateLinkRel("missing", "x", false))
	assert.Equal(t, 0, d.UpdateLinkRel("grade", "", false))
	assert.Equal(t, 1, d.UpdateLinkRel("grade", "rating", true))
	assert.Equal(t, "rating", d.Metadata.Links[0].Rel)
	assert.Equal(t, "grade", d.Metadata.Links[1].Rel)

	assert.Equal(t, 1, d.UpdateLinkRel("grade", "rating", false))
	assert.Equal(t, "rating", d.Metadata.Links[1].Rel)
}

func TestUpdateLinkText(t *testing.T) {
	d := linkedDocument(t)

	assert.Equal(t, 1, d.UpdateLinkText("grade", "beta", "gamma", false))
	assert.Equal(t, "gamma", d.Metadata.Links[1].Text)
	assert.Equal(t, "alpha", d.Metadata.Links[0].Text)

	assert.Equal(t, 2, d.UpdateLinkText("grade", "", "delta", false))
	assert.Equal(t, "delta", d.Metadata.Links[0].Text)
	assert.Equal(t, "delta", d.Metadata.Links[1].Text)
	assert.Equal(t, "alpha", d.Metadata.Links[2].Text)
}

func TestRemoveLinks(t *testing.T) {
	d := linkedDocument(t)
	assert.Equal(t, 0, d.RemoveLinks("grade", "", "https://nowhere"))
	assert.Equal(t, 1, d.RemoveLinks("grade", "", "https://example.org/b"))
	assert.Equal(t, 1, d.RemoveLinks("grade", "alpha", ""))
	assert.Equal(t, []Link{{Rel: "report", Text: "alpha"}}, d.Metadata.Links)

	d = linkedDocument(t)
	assert.Equal(t, 2, d.RemoveLinks("grade", "", ""))
	assert.Len(t, d.Metadata.Links, 1)
}
