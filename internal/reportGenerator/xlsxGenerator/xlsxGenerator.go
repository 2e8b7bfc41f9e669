package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, report model.PortfolioReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillHoldingsSheet(f, report); err != nil {
		return nil, "", err
	}

	if err := g.fillTransactionsSheet(f, report.Transactions); err != nil {
		return nil, "", err
	}

	// drop the default "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
}

func (g *XLSXGenerator) fillHoldingsSheet(f *excelize.File, report model.PortfolioReport) error {
	sheetName := "Holdings"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "E1"); err != nil {
		return err
	}

	title := report.Portfolio.Name
	if report.Portfolio.Description != "" {
		title = fmt.Sprintf("%s - %s", report.Portfolio.Name, report.Portfolio.Description)
	}
	f.SetCellValue(sheetName, "A1", title)

	styleID, err := headerStyle(f)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "E1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "quantity")
	_ = f.SetCellStr(sheetName, "C2", "last price")
	_ = f.SetCellStr(sheetName, "D2", "value")

	row := 3
	for _, position := range report.Valuation.Positions {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), position.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), position.Quantity.String())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), position.LastPrice.String())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), position.Value.String())
		row++
	}

	row++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), "total value")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), report.Valuation.TotalValue.String())

	return nil
}

func (g *XLSXGenerator) fillTransactionsSheet(f *excelize.File, txs []model.Transaction) error {
	sheetName := "Transactions"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "E1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Transaction history")

	styleID, err := headerStyle(f)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "E1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "asset id")
	_ = f.SetCellStr(sheetName, "B2", "side")
	_ = f.SetCellStr(sheetName, "C2", "quantity")
	_ = f.SetCellStr(sheetName, "D2", "price")
	_ = f.SetCellStr(sheetName, "E2", "executed at")

	row := 3
	for _, tx := range txs {
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), tx.AssetID)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), string(tx.Side))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), tx.Quantity.String())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), tx.Price.String())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", row), tx.ExecutedAt.Format("2006-01-02 15:04:05"))
		row++
	}

	return nil
}
