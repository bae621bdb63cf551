package infrastructure

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assembledAt = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

func TestAssemble_SummaryThenAttachment(t *testing.T) {
	out, err := assemble(labelledPDF(t, "Summary", 1), labelledPDF(t, "Attachment", 2), 2, assembledAt)
	require.NoError(t, err)

	streams := pageStreams(t, out)
	require.Len(t, streams, 3)
	assert.Contains(t, streams[0], "Summary page 1")
	assert.NotContains(t, streams[0], "Attachment page")
	assert.Contains(t, streams[1], "Attachment page 1")
	assert.NotContains(t, streams[1], "Summary page")
	assert.Contains(t, streams[2], "Attachment page 2")

	assert.Contains(t, string(out), "/ModDate (D:20261001093000)")
}

func TestAssemble_MultiPageSummary(t *testing.T) {
	out, err := assemble(labelledPDF(t, "Summary", 2), labelledPDF(t, "Attachment", 1), 1, assembledAt)
	require.NoError(t, err)

	streams := pageStreams(t, out)
	require.Len(t, streams, 3)
	assert.Contains(t, streams[0], "Summary page 1")
	assert.Contains(t, streams[1], "Summary page 2")
	assert.Contains(t, streams[2], "Attachment page 1")
}

func TestAssemble_CopyFailureIsEmbedError(t *testing.T) {
	att := overstatePageCount(t, labelledPDF(t, "Attachment", 2), 2)

	_, err := assemble(labelledPDF(t, "Summary", 1), att, 3, assembledAt)
	var embedErr *EmbedError
	require.ErrorAs(t, err, &embedErr)
}

func TestAssemble_UnreadableSummaryIsNotEmbedError(t *testing.T) {
	_, err := assemble([]byte("not a pdf"), labelledPDF(t, "Attachment", 1), 1, assembledAt)
	require.Error(t, err)
	var embedErr *EmbedError
	assert.False(t, errors.As(err, &embedErr))
}
