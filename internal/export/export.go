// Package export moves decks in and out of spreadsheet files so decks can
// be backed up, shared, and bulk-authored outside the app.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/flashdeck/flashdeck-cli/internal/errors"
	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/validator"
)

// OptionsSeparator joins card options into a single spreadsheet column.
const OptionsSeparator = "|"

var columns = []string{"Question", "Answer", "Type", "Options"}

// RowError is a per-row import failure; good rows still import.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	TotalRows    int                 `json:"total_rows"`
	SuccessCount int                 `json:"success_count"`
	ErrorCount   int                 `json:"error_count"`
	Errors       []RowError          `json:"errors,omitempty"`
	Cards        []models.CardCreate `json:"cards,omitempty"`
}

// Service handles deck import/export.
type Service struct {
	logger    *slog.Logger
	validator *validator.Validator
}

func NewService(logger *slog.Logger, v *validator.Validator) *Service {
	return &Service{logger: logger, validator: v}
}

// ===== EXPORT OPERATIONS =====

// ExportDeckToExcel renders a deck's cards as a one-sheet workbook.
func (s *Service) ExportDeckToExcel(deck *models.Deck, cards []models.Card) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Cards"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range columns {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, card := range cards {
		for colIndex, value := range cardToRow(&card) {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Deck exported to Excel", "deck_id", deck.ID, "cards", len(cards))
	return buf.Bytes(), nil
}

// ExportDeckToCSV renders a deck's cards as CSV with the same columns.
func (s *Service) ExportDeckToCSV(deck *models.Deck, cards []models.Card) ([]byte, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, card := range cards {
		if err := writer.Write(cardToRow(&card)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	s.logger.Info("Deck exported to CSV", "deck_id", deck.ID, "cards", len(cards))
	return []byte(buf.String()), nil
}

func cardToRow(card *models.Card) []string {
	return []string{
		card.Question,
		card.Answer,
		string(card.QType),
		strings.Join(card.Options, OptionsSeparator),
	}
}

// ===== IMPORT OPERATIONS =====

// ImportCardsFromCSV parses cards from CSV, collecting per-row validation
// errors instead of aborting the run.
func (s *Service) ImportCardsFromCSV(reader io.Reader) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, apperrors.NewValidationError("file", "CSV must have a header row and at least one data row", len(records))
	}

	headerMap, err := parseHeader(records[0])
	if err != nil {
		return nil, err
	}

	return s.importRows(records[1:], headerMap), nil
}

// ImportCardsFromExcel parses cards from the first sheet of a workbook.
func (s *Service) ImportCardsFromExcel(reader io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewValidationError("file", "Excel must have a header row and at least one data row", len(rows))
	}

	headerMap, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}

	return s.importRows(rows[1:], headerMap), nil
}

func parseHeader(headers []string) (map[string]int, error) {
	headerMap := make(map[string]int)
	for i, header := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range []string{"question", "type"} {
		if _, exists := headerMap[col]; !exists {
			return nil, apperrors.NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}
	return headerMap, nil
}

func (s *Service) importRows(rows [][]string, headerMap map[string]int) *ImportResult {
	result := &ImportResult{TotalRows: len(rows)}

	for rowIndex, row := range rows {
		card, rowErrors := s.parseRow(row, headerMap, rowIndex+2)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		result.Cards = append(result.Cards, *card)
		result.SuccessCount++
	}

	s.logger.Info("Deck import parsed",
		"total_rows", result.TotalRows,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)
	return result
}

func (s *Service) parseRow(row []string, headerMap map[string]int, rowNum int) (*models.CardCreate, []RowError) {
	get := func(col string) string {
		idx, ok := headerMap[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	card := &models.CardCreate{
		Question: get("question"),
		Answer:   get("answer"),
		QType:    models.QType(strings.ToLower(get("type"))),
	}
	if raw := get("options"); raw != "" {
		for _, opt := range strings.Split(raw, OptionsSeparator) {
			card.Options = append(card.Options, strings.TrimSpace(opt))
		}
	}

	if err := s.validator.Validate(card); err != nil {
		var rowErrors []RowError
		if verrs, ok := err.(apperrors.ValidationErrors); ok {
			for _, verr := range verrs {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Field: verr.Field, Message: verr.Message})
			}
		} else {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Field: "row", Message: err.Error()})
		}
		return nil, rowErrors
	}

	return card, nil
}
