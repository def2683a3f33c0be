package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyDocumentationFormatCSV(t *testing.T) {
	record, err := ParseRecord(`{"id":"1","email":"a@b.co","akkio_score":10,"akkio_segment":"high, value"}`)
	require.NoError(t, err)

	doc := GeneratePropertyDocumentation(Companies, record)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, []string{"email"}, doc.Skipped)

	csv, err := doc.FormatCSV()
	require.NoError(t, err)

	expected := strings.Join([]string{
		"# Object type: Companies",
		"Property Name,Label,Data Type,Field Type,Group,Sample Value",
		"akkio_score,akkio_score,number,number,akkio,10",
		`akkio_segment,akkio_segment,string,text,akkio,"high, value"`,
		"# Skipped: email (outside the akkio namespace)",
	}, "\n") + "\n"
	assert.Equal(t, expected, csv)
}

func TestPropertyDocumentationEmpty(t *testing.T) {
	doc := GeneratePropertyDocumentation(Contacts, nil)
	assert.Empty(t, doc.Rows)

	csv, err := doc.FormatCSV()
	require.NoError(t, err)
	assert.Equal(t, "# Object type: Contacts\nProperty Name,Label,Data Type,Field Type,Group,Sample Value\n", csv)
}
