package suiteio

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/optics-run/optics/pkg/opticserr"
)

// cellEscaper implements spec §6.1's CSV cell escape convention: `\n`,
// `\t`, `\r`, `\\` literal two-character sequences in a cell decode to
// their real control character, and the inverse on encode, so a
// multi-line element ID or module parameter survives a single CSV cell.
var cellReplacer = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\\`, `\`)
var cellEscaper = strings.NewReplacer("\\", `\\`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

// DecodeCell applies the CSV cell escape convention's decode direction.
func DecodeCell(raw string) string { return cellReplacer.Replace(raw) }

// EncodeCell applies the inverse, for suite-file writers.
func EncodeCell(value string) string { return cellEscaper.Replace(value) }

// SniffCSVHeader classifies a CSV file by its header row, per spec
// §6.1's content-identification rule.
func SniffCSVHeader(header []string) Kind {
	has := func(col string) bool {
		for _, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				return true
			}
		}
		return false
	}
	switch {
	case has("test_case") && has("test_step"):
		return KindTestCases
	case has("module_name") && has("module_step"):
		return KindModules
	case has("Element_Name") && has("Element_ID"):
		return KindElements
	default:
		return KindUnknown
	}
}

func loadCSVFile(suite *Suite, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return opticserr.Newf(opticserr.CodeConfigMissingFiles, "empty CSV suite file: %s", path)
	}

	header := rows[0]
	switch SniffCSVHeader(header) {
	case KindTestCases:
		return loadTestCasesCSV(suite, header, rows[1:])
	case KindModules:
		return loadModulesCSV(suite, header, rows[1:])
	case KindElements:
		return loadElementsCSV(suite, header, rows[1:])
	default:
		return opticserr.Newf(opticserr.CodeConfigMissingFiles, "unrecognized CSV header in %s: %v", path, header)
	}
}

func colIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return DecodeCell(row[idx])
}

func loadTestCasesCSV(suite *Suite, header []string, rows [][]string) error {
	tcCol := colIndex(header, "test_case")
	stepCol := colIndex(header, "test_step")
	for _, row := range rows {
		tc := cell(row, tcCol)
		step := cell(row, stepCol)
		if tc == "" {
			continue
		}
		suite.TestCases[tc] = append(suite.TestCases[tc], step)
	}
	return nil
}

func loadModulesCSV(suite *Suite, header []string, rows [][]string) error {
	nameCol := colIndex(header, "module_name")
	stepCol := colIndex(header, "module_step")
	var paramCols []int
	for i, h := range header {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(h)), "param_") {
			paramCols = append(paramCols, i)
		}
	}

	for _, row := range rows {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}
		step := ModuleStep{Keyword: cell(row, stepCol)}
		for _, col := range paramCols {
			val := cell(row, col)
			if val == "" {
				continue
			}
			step.Params = append(step.Params, val)
		}
		suite.Modules[name] = append(suite.Modules[name], step)
	}
	return nil
}

func loadElementsCSV(suite *Suite, header []string, rows [][]string) error {
	nameCol := colIndex(header, "Element_Name")
	var idCols []int
	for i, h := range header {
		trimmed := strings.TrimSpace(h)
		if strings.EqualFold(trimmed, "Element_ID") || strings.HasPrefix(strings.ToLower(trimmed), "element_id_") {
			idCols = append(idCols, i)
		}
	}

	for _, row := range rows {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}
		for _, col := range idCols {
			val := cell(row, col)
			if val == "" {
				continue
			}
			suite.Elements[name] = append(suite.Elements[name], val)
		}
	}
	return nil
}
