package indexing

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// LineRecord is one non-empty line of an indexed file. Number is the
// 1-based line number as it appears in the source; blank lines are
// counted toward the file total but carry no record.
type LineRecord struct {
	Number int    `json:"idx"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

// ExtractLines splits content at line feeds into line records. Trailing
// carriage returns are stripped, invalid UTF-8 is repaired with the
// replacement character, and whitespace-only lines are omitted from the
// record list while still counting toward total.
func ExtractLines(data []byte) (total int, records []LineRecord) {
	if len(data) == 0 {
		return 0, nil
	}

	records = make([]LineRecord, 0, estimateLineCount(data))

	pos := 0
	for pos <= len(data) {
		idx := bytes.IndexByte(data[pos:], '\n')
		var line []byte
		if idx < 0 {
			if pos == len(data) {
				break
			}
			line = data[pos:]
			pos = len(data) + 1
		} else {
			line = data[pos : pos+idx]
			pos += idx + 1
		}

		total++

		// Strip trailing \r (CRLF handling)
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		text := string(line)
		if !utf8.ValidString(text) {
			text = strings.ToValidUTF8(text, "�")
		}

		records = append(records, LineRecord{
			Number: total,
			Text:   text,
			Length: len(text),
		})
	}

	return total, records
}

// estimateLineCount counts newlines to pre-allocate the record slice.
func estimateLineCount(data []byte) int {
	n := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}
