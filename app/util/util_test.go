package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDigits(t *testing.T) {
	assert.True(t, IsDigits("123456"))
	assert.False(t, IsDigits(""))
	assert.False(t, IsDigits("12a4"))
	assert.False(t, IsDigits("whatsapp:15551234567"))
}

func TestChunkStringShortStaysWhole(t *testing.T) {
	chunks := ChunkString("коротка фраза", 100)
	assert.Equal(t, []string{"коротка фраза"}, chunks)
}

func TestChunkStringSplitsOnLines(t *testing.T) {
	text := strings.Repeat("рядок опису квартири\n", 50)
	chunks := ChunkString(text, 200)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 200)
	}
	joined := strings.Join(chunks, "\n")
	assert.Contains(t, joined, "рядок опису квартири")
}

func TestChunkStringSplitsLongLineOnWords(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("слово ", 100))
	chunks := ChunkString(text, 60)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 60)
		assert.NotEmpty(t, chunk)
	}
}
