package fulfillment

import (
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Orders"

// Record is one completed order as fulfillment staff see it.
type Record struct {
	OrderID      int64
	UserID       int64
	Total        float64
	DeliveryInfo string
	ItemsSummary string
}

// Ledger is an append-only workbook of completed orders. One row per order;
// existing rows are never rewritten.
type Ledger struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewLedger(path string, logger *zap.Logger) *Ledger {
	return &Ledger{path: path, logger: logger}
}

func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("read ledger rows: %w", err)
	}
	rowNum := len(rows) + 1

	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("build cell name: %w", err)
	}

	err = f.SetSheetRow(sheetName, cell, &[]interface{}{
		rec.OrderID,
		rec.UserID,
		rec.Total,
		rec.DeliveryInfo,
		rec.ItemsSummary,
	})
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	l.logger.Info("Order appended to fulfillment ledger",
		zap.Int64("order_id", rec.OrderID),
		zap.String("path", l.path))
	return nil
}

func (l *Ledger) open() (*excelize.File, error) {
	if _, err := os.Stat(l.path); err == nil {
		f, err := excelize.OpenFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		return f, nil
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	err = f.SetSheetRow(sheetName, "A1", &[]interface{}{
		"Order ID", "User ID", "Total", "Delivery Info", "Items",
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("write ledger header: %w", err)
	}
	return f, nil
}
