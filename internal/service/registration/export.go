package registration

import (
	"context"
	"fmt"
	"io"

	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Inscrições"

// exportColumns are the spreadsheet headers, in column order.
var exportColumns = []struct {
	header string
	width  float64
	value  func(r *domain.Registration) any
}{
	{"ID", 8, func(r *domain.Registration) any { return r.ID }},
	{"Nome completo", 32, func(r *domain.Registration) any { return r.FullName }},
	{"Data de nascimento", 16, func(r *domain.Registration) any { return r.BirthDate }},
	{"Idade", 8, func(r *domain.Registration) any { return r.Age }},
	{"Gênero", 12, func(r *domain.Registration) any { return r.Gender }},
	{"Telefone", 18, func(r *domain.Registration) any { return r.Phone }},
	{"Email", 30, func(r *domain.Registration) any { return r.Email }},
	{"Endereço", 36, func(r *domain.Registration) any { return r.Address }},
	{"Rede social", 20, func(r *domain.Registration) any { return r.SocialMedia }},
	{"Contato de emergência", 26, func(r *domain.Registration) any { return r.EmergencyContactName }},
	{"Telefone de emergência", 20, func(r *domain.Registration) any { return r.EmergencyContactPhone }},
	{"Parentesco", 14, func(r *domain.Registration) any { return r.EmergencyContactRelationship }},
	{"Membro Lagoinha", 10, func(r *domain.Registration) any { return r.IsLagoinhaMember }},
	{"Igreja", 24, func(r *domain.Registration) any { return r.ChurchName }},
	{"Ministério", 24, func(r *domain.Registration) any { return r.MinistryParticipation }},
	{"Lote", 8, func(r *domain.Registration) any { return r.RegistrationLot }},
	{"Pagamento", 12, func(r *domain.Registration) any { return r.PaymentMethod }},
	{"Cupom", 14, func(r *domain.Registration) any { return deref(r.CouponCode) }},
	{"Camiseta", 10, func(r *domain.Registration) any { return r.ShirtSize }},
	{"Alergia", 10, func(r *domain.Registration) any { return r.HasAllergy }},
	{"Detalhes da alergia", 24, func(r *domain.Registration) any { return deref(r.AllergyDetails) }},
	{"Medicação", 10, func(r *domain.Registration) any { return deref(r.UsesMedication) }},
	{"Detalhes da medicação", 24, func(r *domain.Registration) any { return deref(r.MedicationDetails) }},
	{"Restrição alimentar", 20, func(r *domain.Registration) any { return r.DietaryRestriction }},
	{"Status", 12, func(r *domain.Registration) any { return string(r.Status) }},
	{"Criada em", 20, func(r *domain.Registration) any { return r.CreatedAt.Format("2006-01-02 15:04") }},
}

// ExportXLSX writes the registrations matching f as an .xlsx workbook.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer, f ListFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	list, _, err := s.List(ctx, f)
	if err != nil {
		return 0, err
	}

	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	headerStyle, err := book.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"667EEA"}},
	})
	if err != nil {
		return 0, fmt.Errorf("export style: %w", err)
	}

	header := make([]any, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c.header
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := book.SetColWidth(exportSheet, col, col, c.width); err != nil {
			return 0, fmt.Errorf("export: %w", err)
		}
	}
	if err := book.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return 0, fmt.Errorf("export header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
	if err := book.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	for i := range list {
		row := make([]any, len(exportColumns))
		for j, c := range exportColumns {
			row[j] = c.value(&list[i])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := book.SetSheetRow(exportSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("export row %d: %w", list[i].ID, err)
		}
	}

	if err := book.Write(w); err != nil {
		return 0, fmt.Errorf("export write: %w", err)
	}
	return len(list), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
