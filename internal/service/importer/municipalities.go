package importer

import (
	"fmt"
	"strings"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
)

var municipalityHeaders = map[string][]string{
	"name":          {"наименование", "название", "муниципальное образование", "муниципалитет", "name"},
	"head_name":     {"фио главы", "глава", "руководитель", "head_name"},
	"head_position": {"должность", "head_position"},
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int)
	for col, cell := range header {
		label := fold(cell)
		for field, aliases := range municipalityHeaders {
			if _, ok := index[field]; ok {
				continue
			}
			for _, alias := range aliases {
				if label == alias || strings.HasPrefix(label, alias) {
					index[field] = col + 1
					break
				}
			}
		}
	}
	return index
}

// ParseMunicipalities читает справочник муниципалитетов из листа sheetName
// (пустое имя означает первый лист). Колонки ищутся по заголовкам.
func ParseMunicipalities(data []byte, sheetName string) ([]*domain.Municipality, error) {
	sheets, err := ReadSheets(data)
	if err != nil {
		return nil, err
	}

	sheet := sheets[0]
	if sheetName != "" {
		found := false
		for _, s := range sheets {
			if s.Name == sheetName {
				sheet, found = s, true
				break
			}
		}
		if !found {
			return nil, constants.BadRequest(fmt.Sprintf("sheet %q not found", sheetName))
		}
	}
	if len(sheet.Rows) < 2 {
		return nil, constants.BadRequest("sheet has no data rows")
	}

	cols := headerIndex(sheet.Rows[0])
	nameCol, ok := cols["name"]
	if !ok {
		return nil, constants.BadRequest("name column not found in header")
	}

	optional := func(row int, field string) *string {
		col, ok := cols[field]
		if !ok {
			return nil
		}
		if v := sheet.Cell(row, col); v != "" {
			return &v
		}
		return nil
	}

	var items []*domain.Municipality
	seen := make(map[string]bool)
	for row := 1; row < len(sheet.Rows); row++ {
		name := strings.Join(strings.Fields(sheet.Cell(row, nameCol)), " ")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, &domain.Municipality{
			Name:         name,
			HeadName:     optional(row, "head_name"),
			HeadPosition: optional(row, "head_position"),
		})
	}
	return items, nil
}
