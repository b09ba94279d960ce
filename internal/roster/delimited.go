package roster

import (
	"encoding/csv"
	"strconv"
	"strings"
)

const (
	fieldSeparator                  = ","
	invalidDelimitedDocumentMessage = "invalid CSV document: verify the file is a social graph export"
)

var (
	usernameHeaderAliases  = []string{"username", "user", "name", "account", "handle"}
	timestampHeaderAliases = []string{"timestamp", "date"}
	pictureHeaderAliases   = []string{"profile_pic", "avatar", "photo"}
)

// NormalizeDelimited converts header-tagged delimited text into canonical
// records. The first line is always consumed as the header row. The username
// column is located by probing the header aliases in priority order; when no
// alias matches and the first data cell carries no field separator, every
// row's first cell is treated as a bare username. Rows without a username
// after trimming are dropped. Output order matches input order.
func NormalizeDelimited(text string) ([]UserRecord, error) {
	csvReader := csv.NewReader(strings.NewReader(text))
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	rows, readErr := csvReader.ReadAll()
	if readErr != nil {
		return nil, newFormatError(invalidDelimitedDocumentMessage)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headerCells := make([]string, len(rows[0]))
	for cellIndex, cell := range rows[0] {
		headerCells[cellIndex] = strings.ToLower(strings.TrimSpace(cell))
	}
	dataRows := rows[1:]

	usernameColumn := locateColumn(headerCells, usernameHeaderAliases)
	if usernameColumn < 0 && isHeaderlessList(dataRows) {
		return normalizeHeaderlessRows(dataRows), nil
	}

	timestampColumn := locateColumn(headerCells, timestampHeaderAliases)
	pictureColumn := locateColumn(headerCells, pictureHeaderAliases)

	records := make([]UserRecord, 0, len(dataRows))
	for _, row := range dataRows {
		if len(row) == 0 {
			continue
		}
		username := strings.TrimSpace(cellAt(row, usernameColumn))
		if username == "" {
			username = strings.TrimSpace(row[0])
		}
		if username == "" {
			continue
		}
		records = append(records, UserRecord{
			Username:      username,
			Timestamp:     parseEpochSeconds(cellAt(row, timestampColumn)),
			ProfilePicURL: optionalString(cellAt(row, pictureColumn)),
		})
	}
	return records, nil
}

// locateColumn returns the index of the first alias present in the header,
// honoring alias priority over column position.
func locateColumn(headerCells []string, aliases []string) int {
	for _, alias := range aliases {
		for cellIndex, cell := range headerCells {
			if cell == alias {
				return cellIndex
			}
		}
	}
	return -1
}

func isHeaderlessList(dataRows [][]string) bool {
	if len(dataRows) == 0 || len(dataRows[0]) == 0 {
		return false
	}
	firstCell := dataRows[0][0]
	return firstCell != "" && !strings.Contains(firstCell, fieldSeparator)
}

func normalizeHeaderlessRows(dataRows [][]string) []UserRecord {
	records := make([]UserRecord, 0, len(dataRows))
	for _, row := range dataRows {
		if len(row) == 0 {
			continue
		}
		username := strings.TrimSpace(row[0])
		if username == "" {
			continue
		}
		records = append(records, UserRecord{Username: username})
	}
	return records
}

func cellAt(row []string, columnIndex int) string {
	if columnIndex < 0 || columnIndex >= len(row) {
		return ""
	}
	return row[columnIndex]
}

func parseEpochSeconds(cell string) *int64 {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	seconds, parseErr := strconv.ParseInt(trimmed, 10, 64)
	if parseErr != nil {
		return nil
	}
	return &seconds
}

func optionalString(cell string) *string {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
