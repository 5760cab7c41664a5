package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Expected source feed columns. Order in the file does not matter;
// the header row decides.
var requiredColumns = []string{
	"ORDERNUMBER", "PRODUCTCODE", "ORDERDATE", "STATUS",
	"CUSTOMERNAME", "COUNTRY", "PRODUCTLINE", "MSRP",
	"QUANTITYORDERED", "PRICEEACH", "SALES", "DEALSIZE",
}

// Source feed dates are day-first.
var dateLayouts = []string{
	"2/1/2006",
	"02/01/2006",
	"2/1/2006 15:04",
	"02/01/2006 15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// LineError records a source line that could not be parsed.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// LoadCSV reads the sales feed from path. Rows that fail to parse are
// collected as LineErrors and skipped; only I/O and header faults are
// returned as a hard error.
func LoadCSV(path string) ([]SalesRecord, []LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV reads the sales feed from r. See LoadCSV.
func ReadCSV(r io.Reader) ([]SalesRecord, []LineError, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("csv header missing column %s", name)
		}
	}

	var (
		records  []SalesRecord
		failures []LineError
		line     = 1
	)

	for {
		line++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			failures = append(failures, LineError{Line: line, Err: err})
			continue
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			failures = append(failures, LineError{Line: line, Err: err})
			continue
		}
		records = append(records, rec)
	}

	return records, failures, nil
}

func parseRow(row []string, cols map[string]int) (SalesRecord, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	orderNumber, err := strconv.Atoi(field("ORDERNUMBER"))
	if err != nil {
		return SalesRecord{}, fmt.Errorf("ORDERNUMBER: %w", err)
	}

	quantity, err := strconv.Atoi(field("QUANTITYORDERED"))
	if err != nil {
		return SalesRecord{}, fmt.Errorf("QUANTITYORDERED: %w", err)
	}

	orderDate, err := parseDate(field("ORDERDATE"))
	if err != nil {
		return SalesRecord{}, fmt.Errorf("ORDERDATE: %w", err)
	}

	msrp, err := decimal.NewFromString(field("MSRP"))
	if err != nil {
		return SalesRecord{}, fmt.Errorf("MSRP: %w", err)
	}

	price, err := decimal.NewFromString(field("PRICEEACH"))
	if err != nil {
		return SalesRecord{}, fmt.Errorf("PRICEEACH: %w", err)
	}

	total, err := decimal.NewFromString(field("SALES"))
	if err != nil {
		return SalesRecord{}, fmt.Errorf("SALES: %w", err)
	}

	return SalesRecord{
		OrderNumber:     orderNumber,
		ProductCode:     field("PRODUCTCODE"),
		OrderDate:       orderDate,
		Status:          field("STATUS"),
		CustomerName:    field("CUSTOMERNAME"),
		Country:         field("COUNTRY"),
		ProductLine:     field("PRODUCTLINE"),
		MSRP:            msrp,
		QuantityOrdered: quantity,
		PriceEach:       price,
		Total:           total,
		DealSize:        field("DEALSIZE"),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
