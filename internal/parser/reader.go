package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"ledgerimport/internal/models"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrEmptyFile is returned for uploads without any content.
	ErrEmptyFile = errors.New("file is empty")
	// ErrUnsupportedFile is returned for spreadsheets that cannot be opened.
	ErrUnsupportedFile = errors.New("unsupported file")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Content is a file ready to be parsed: delimited text or a spreadsheet table.
type Content struct {
	Name string
	Text string
	Rows [][]string
}

// IsTable reports whether the content was read from a spreadsheet.
func (c *Content) IsTable() bool { return c.Rows != nil }

// Parse dispatches to Parse or ParseTable.
func (c *Content) Parse(opts ParseOptions) *models.ParseResult {
	if c.IsTable() {
		return ParseTable(c.Rows, opts)
	}
	return Parse(c.Text, opts)
}

// IsSpreadsheet reports whether the file name designates an Excel workbook.
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadContent reads an uploaded file. Workbooks are read from their first sheet;
// anything else is treated as text, decoded as UTF-8 or, failing that, Windows-1252.
func ReadContent(name string, r io.Reader) (*Content, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	if IsSpreadsheet(name) {
		rows, err := readWorkbook(data)
		if err != nil {
			return nil, err
		}
		return &Content{Name: name, Rows: rows}, nil
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return &Content{Name: name, Text: text}, nil
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnsupportedFile)
	}

	// Raw values keep dates as serial numbers and amounts unformatted.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}
