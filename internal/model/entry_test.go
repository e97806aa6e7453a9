package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectedEntryValidate(t *testing.T) {
	valid := CollectedEntry{
		Title: "Attention Is All You Need",
		Link:  "https://arxiv.org/abs/1706.03762",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*CollectedEntry)
	}{
		{"empty title", func(e *CollectedEntry) { e.Title = "" }},
		{"whitespace title", func(e *CollectedEntry) { e.Title = "   " }},
		{"title too long", func(e *CollectedEntry) { e.Title = strings.Repeat("x", 201) }},
		{"summary too long", func(e *CollectedEntry) { e.Summary = strings.Repeat("x", 10001) }},
		{"relative link", func(e *CollectedEntry) { e.Link = "/abs/1706.03762" }},
		{"ftp link", func(e *CollectedEntry) { e.Link = "ftp://example.com/file" }},
		{"empty link", func(e *CollectedEntry) { e.Link = "" }},
		{"no host", func(e *CollectedEntry) { e.Link = "https://" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestCollectedEntryValidateBoundaries(t *testing.T) {
	e := CollectedEntry{
		Title:   strings.Repeat("t", 200),
		Link:    "http://example.com/post",
		Summary: strings.Repeat("s", 10000),
	}
	assert.NoError(t, e.Validate())
}

func TestDomain(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://www.example.com/a/b", "example.com"},
		{"https://ArXiv.org/abs/1", "arxiv.org"},
		{"http://github.com", "github.com"},
		{"", ""},
	}
	for _, tt := range tests {
		e := CollectedEntry{Link: tt.link}
		assert.Equal(t, tt.want, e.Domain(), tt.link)
	}
}

func TestFromCollectedDefaults(t *testing.T) {
	e := FromCollected(CollectedEntry{Title: "t", Link: "https://example.com"})
	assert.Equal(t, PriorityLow, e.Priority)
	assert.Equal(t, MethodKeyword, e.ProcessingMethod)
	assert.False(t, e.IsSemanticDuplicate)
	assert.Nil(t, e.SimilarityScore)
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, PriorityHigh.Valid())
	assert.True(t, PriorityMedium.Valid())
	assert.True(t, PriorityLow.Valid())
	assert.False(t, Priority("urgent").Valid())
}
