package obslog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedFormatWriterBasicLine(t *testing.T) {
	var buf bytes.Buffer
	w := newFixedFormatWriter(&buf)

	n, err := w.Write([]byte(`{"time":"2026-02-26T12:00:00.123Z","level":"info","component":"engine","message":"Serving..."}`))
	assert.NoError(t, err)
	assert.Greater(t, n, 0)

	assert.Equal(t, "2026-02-26 12:00:00.123 [INF] [engine         ] Serving...\n", buf.String())
}

func TestFixedFormatWriterExtraFields(t *testing.T) {
	var buf bytes.Buffer
	w := newFixedFormatWriter(&buf)

	_, err := w.Write([]byte(`{"time":"2026-02-26T12:00:00Z","level":"warn","component":"engine","message":"degraded","reason":"timeout","count":3}`))
	assert.NoError(t, err)

	assert.Equal(t, "2026-02-26 12:00:00.000 [WRN] [engine         ] degraded count=3 reason=timeout\n", buf.String())
}

func TestFixedFormatWriterUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	w := newFixedFormatWriter(&buf)

	_, err := w.Write([]byte(`{"time":"2026-02-26T12:00:00Z","level":"silly","component":"c","message":"m"}`))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "[???]")
}

func TestFixedFormatWriterLongComponentTruncated(t *testing.T) {
	var buf bytes.Buffer
	w := newFixedFormatWriter(&buf)

	_, err := w.Write([]byte(`{"time":"2026-02-26T12:00:00Z","level":"info","component":"a-very-long-component-name","message":"m"}`))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "[a-very-long-com]")
}

func TestFixedFormatWriterPassesThroughInvalidJSON(t *testing.T) {
	var buf bytes.Buffer
	w := newFixedFormatWriter(&buf)

	_, err := w.Write([]byte("not json\n"))
	assert.NoError(t, err)
	assert.Equal(t, "not json\n", buf.String())
}

func TestFormatTimestampPadsMissingFraction(t *testing.T) {
	assert.Equal(t, "2026-02-26 12:00:00.000", formatTimestamp("2026-02-26T12:00:00Z"))
}

func TestFormatTimestampTruncatesLongFraction(t *testing.T) {
	assert.Equal(t, "2026-02-26 12:00:00.123", formatTimestamp("2026-02-26T12:00:00.123456789Z"))
}

func TestFormatTimestampEmptyInput(t *testing.T) {
	assert.Equal(t, "                       ", formatTimestamp(""))
}

func TestFormatExtraQuotesValuesWithSpaces(t *testing.T) {
	got := formatExtra(map[string]interface{}{"msg": "hello world"})
	assert.Equal(t, `msg="hello world"`, got)
}

func TestFormatExtraSortsKeys(t *testing.T) {
	got := formatExtra(map[string]interface{}{"b": 2, "a": 1})
	assert.Equal(t, "a=1 b=2", got)
}

func TestFormatExtraEmpty(t *testing.T) {
	assert.Equal(t, "", formatExtra(map[string]interface{}{}))
}
