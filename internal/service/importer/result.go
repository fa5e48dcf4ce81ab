package importer

import "github.com/ougirez/muniportal/internal/domain"

type status int

const (
	statusImported status = iota
	statusSkipped
	statusFailed
)

// outcome: неизменяемый итог обработки строки или пакета строк.
type outcome struct {
	status  status
	count   int
	message string
}

func imported(n int) outcome {
	return outcome{status: statusImported, count: n}
}

func skipped(msg string) outcome {
	return outcome{status: statusSkipped, message: msg}
}

func failed(msg string) outcome {
	return outcome{status: statusFailed, message: msg}
}

type ImportResult struct {
	Kind     Kind          `json:"kind"`
	Period   domain.Period `json:"period"`
	Imported int           `json:"imported"`
	Errors   []string      `json:"errors"`
	Skipped  []string      `json:"skipped"`
}

// collect сворачивает итоги строк в результат импорта.
func collect(kind Kind, period domain.Period, outcomes []outcome) ImportResult {
	res := ImportResult{Kind: kind, Period: period, Errors: []string{}, Skipped: []string{}}
	for _, o := range outcomes {
		switch o.status {
		case statusImported:
			res.Imported += o.count
		case statusSkipped:
			res.Skipped = append(res.Skipped, o.message)
		case statusFailed:
			res.Errors = append(res.Errors, o.message)
		}
	}
	return res
}
