package importer

import (
	"strconv"
	"strings"

	"github.com/ougirez/muniportal/internal/domain"
)

var monthNames = map[string]domain.Month{
	"январь": 1, "января": 1,
	"февраль": 2, "февраля": 2,
	"март": 3, "марта": 3,
	"апрель": 4, "апреля": 4,
	"май": 5, "мая": 5,
	"июнь": 6, "июня": 6,
	"июль": 7, "июля": 7,
	"август": 8, "августа": 8,
	"сентябрь": 9, "сентября": 9,
	"октябрь": 10, "октября": 10,
	"ноябрь": 11, "ноября": 11,
	"декабрь": 12, "декабря": 12,
}

// ParsePeriod ищет в заголовке название месяца и четырёхзначный год, например «Август 2025»
// или «за сентября 2024 г.».
func ParsePeriod(title string) (domain.Period, bool) {
	var month domain.Month
	var year domain.Year

	for _, part := range strings.Fields(fold(title)) {
		part = strings.Trim(part, ".,:;()«»\"")
		if m, ok := monthNames[part]; ok && month == 0 {
			month = m
			continue
		}
		if len(part) == 4 && year == 0 {
			if y, err := strconv.Atoi(part); err == nil {
				year = y
			}
		}
	}

	if month == 0 || year == 0 {
		return domain.Period{}, false
	}
	return domain.Period{Year: year, Month: month}, true
}
