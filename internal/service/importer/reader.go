package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html/charset"
)

// Sheet: лист таблицы: имя и строки ячеек как текст.
type Sheet struct {
	Name string
	Rows [][]string
}

// Cell возвращает ячейку по номеру колонки с единицы, пустую строку за пределами строки.
func (s Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) || col < 1 || col > len(s.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[row][col-1])
}

// Width: число колонок самой широкой строки листа.
func (s Sheet) Width() int {
	var w int
	for _, row := range s.Rows {
		w = max(w, len(row))
	}
	return w
}

var zipMagic = []byte("PK\x03\x04")

// ReadSheets разбирает xlsx или html-таблицу, сохранённую с расширением .xls.
func ReadSheets(data []byte) ([]Sheet, error) {
	switch {
	case len(data) == 0:
		return nil, constants.BadRequest("file is empty")
	case bytes.HasPrefix(data, zipMagic):
		return readXLSX(data)
	case looksLikeHTML(data):
		return readHTML(data)
	default:
		return nil, constants.BadRequest("unsupported file format, expected .xlsx or html .xls")
	}
}

func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.ToLower(head)
	return bytes.Contains(head, []byte("<table")) || bytes.Contains(head, []byte("<html"))
}

func readXLSX(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, constants.BadRequest("unreadable spreadsheet").Wrap(err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, constants.BadRequest(fmt.Sprintf("unreadable sheet %q", name)).Wrap(err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	if len(sheets) == 0 {
		return nil, constants.BadRequest("spreadsheet has no sheets")
	}
	return sheets, nil
}

// readHTML: каждая таблица документа становится отдельным листом. Имя листа берётся из caption,
// иначе из title документа. colspan раскрывается пустыми ячейками, чтобы не сбить смещения колонок.
func readHTML(data []byte) ([]Sheet, error) {
	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, constants.BadRequest("unreadable html table").Wrap(err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, constants.BadRequest("unreadable html table").Wrap(err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var sheets []Sheet
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		name := strings.TrimSpace(table.Find("caption").First().Text())
		if name == "" {
			name = title
		}

		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.ChildrenFiltered("td,th").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, strings.TrimSpace(cell.Text()))
				if span, err := strconv.Atoi(cell.AttrOr("colspan", "1")); err == nil {
					for i := 1; i < span; i++ {
						row = append(row, "")
					}
				}
			})
			rows = append(rows, row)
		})
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	})

	if len(sheets) == 0 {
		return nil, constants.BadRequest("html document has no tables")
	}
	return sheets, nil
}
