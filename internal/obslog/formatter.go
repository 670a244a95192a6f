package obslog

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// fixedFormatWriter converts zerolog's JSON output into a column-aligned
// line, for terminals where the human-readable console writer's variable
// width is harder to scan than fixed columns.
//
//	2026-02-26 12:00:00.000 [INF] [engine         ] Serving...
type fixedFormatWriter struct {
	w io.Writer
}

func newFixedFormatWriter(w io.Writer) *fixedFormatWriter {
	return &fixedFormatWriter{w: w}
}

var levelMap = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

const componentWidth = 15

func (f *fixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	timestamp := extractString(fields, "time")
	level := extractString(fields, "level")
	component := extractString(fields, "component")
	message := extractString(fields, "message")

	delete(fields, "time")
	delete(fields, "level")
	delete(fields, "component")
	delete(fields, "message")

	ts := formatTimestamp(timestamp)

	lvl := levelMap[level]
	if lvl == "" {
		lvl = "???"
	}

	comp := component
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}

	extra := formatExtra(fields)

	var line string
	if extra != "" {
		line = fmt.Sprintf("%s [%s] [%-*s] %s %s\n", ts, lvl, componentWidth, comp, message, extra)
	} else {
		line = fmt.Sprintf("%s [%s] [%-*s] %s\n", ts, lvl, componentWidth, comp, message)
	}

	_, err := f.w.Write([]byte(line))
	return len(p), err
}

func extractString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

func formatTimestamp(ts string) string {
	if len(ts) == 0 {
		return strings.Repeat(" ", 23)
	}

	result := strings.Replace(ts, "T", " ", 1)

	if idx := strings.IndexAny(result[11:], "Z+-"); idx >= 0 {
		result = result[:11+idx]
	}

	dotIdx := strings.LastIndex(result, ".")
	if dotIdx == -1 {
		result += ".000"
	} else {
		frac := result[dotIdx+1:]
		switch {
		case len(frac) > 3:
			result = result[:dotIdx+4]
		case len(frac) < 3:
			result += strings.Repeat("0", 3-len(frac))
		}
	}

	if len(result) < 23 {
		result += strings.Repeat(" ", 23-len(result))
	} else if len(result) > 23 {
		result = result[:23]
	}

	return result
}

func formatExtra(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		s := fmt.Sprintf("%v", v)
		if strings.ContainsAny(s, " \t\n\"") {
			parts = append(parts, fmt.Sprintf("%s=%q", k, s))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", k, s))
		}
	}

	return strings.Join(parts, " ")
}
